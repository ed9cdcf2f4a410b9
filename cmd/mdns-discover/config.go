package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/mdns/internal/config"
	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/transport"
	"github.com/muurk/mdns/internal/ui"
	"github.com/muurk/mdns/internal/version"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Create and inspect the configuration file holding discovery defaults,
service aliases and remembered hosts.`,
	// config init must work even when the existing file does not parse.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv(config.PathEnvVar, configPath); err != nil {
				return err
			}
		}
		return logging.Initialize(logLevel)
	},
}

var forceInit bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		overwrite := forceInit
		if _, statErr := os.Stat(path); statErr == nil && !forceInit {
			overwrite = ui.Confirm(cmd.InOrStdin(), out, "Overwrite existing configuration?", []string{
				"The file " + path + " already exists",
				"Aliases and remembered hosts in it will be lost",
			}, ui.GetTerminalWidth())
			if !overwrite {
				fmt.Fprintln(out, "Configuration left unchanged.")
				return nil
			}
		}

		path, err = config.CreateDefaultConfig(overwrite)
		if err != nil {
			return err
		}
		ui.NewPrinter(out).PrintSuccess("Configuration written", map[string]string{"Path": path})
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(reg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configAliasCmd = &cobra.Command{
	Use:   "alias <name> [service]",
	Short: "Show, set or remove a service alias",
	Long: `With one argument, print the service an alias maps to. With two, map the
alias to a service name. Use --remove to delete an alias.`,
	Example: `  mdns-discover config alias printers _ipp._tcp.local
  mdns-discover config alias printers
  mdns-discover config alias printers --remove`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigAlias,
}

var removeAlias bool

var configNicknameCmd = &cobra.Command{
	Use:   "nickname <instance> <nickname>",
	Short: "Give a remembered host a friendly name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		reg.SetNickname(args[0], args[1])
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now known as %q\n", args[0], args[1])
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file without asking")
	configAliasCmd.Flags().BoolVar(&removeAlias, "remove", false, "Remove the alias")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configAliasCmd)
	configCmd.AddCommand(configNicknameCmd)
}

func runConfigAlias(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	alias := args[0]

	switch {
	case removeAlias:
		if !reg.RemoveAlias(alias) {
			return fmt.Errorf("alias %q is not defined", alias)
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed alias %s\n", alias)
	case len(args) == 2:
		if err := reg.SetAlias(alias, args[1]); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s -> %s\n", alias, args[1])
	default:
		name := reg.ResolveService(alias)
		if name == alias {
			return fmt.Errorf("alias %q is not defined", alias)
		}
		fmt.Fprintln(out, name)
	}
	return nil
}

var showAllInterfaces bool

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List the interfaces discovery would use",
	Long: `List every up, multicast-capable IPv4 interface. Virtual interfaces
(docker, bridges, VPN tunnels) are skipped unless --all is given, matching
what discovery does when no --interface is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		skip := transport.DefaultVirtualPrefixes
		if showAllInterfaces {
			skip = nil
		}
		ifaces, err := transport.Interfaces(skip)
		if err != nil {
			return fmt.Errorf("failed to list interfaces: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderInterfaces(ifaces))
		return nil
	},
}

func init() {
	interfacesCmd.Flags().BoolVarP(&showAllInterfaces, "all", "a", false, "Include virtual interfaces")
}

func renderInterfaces(ifaces []transport.Interface) string {
	if len(ifaces) == 0 {
		return ui.StepNoteStyle.Render("No usable interfaces found")
	}

	sort.Slice(ifaces, func(i, j int) bool {
		if ifaces[i].Index != ifaces[j].Index {
			return ifaces[i].Index < ifaces[j].Index
		}
		return ifaces[i].Addr.Less(ifaces[j].Addr)
	})

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ui.PrimaryColor).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ui.MutedColor)).
		Headers("INDEX", "NAME", "ADDRESS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, ifi := range ifaces {
		t.Row(strconv.Itoa(ifi.Index), ifi.Name, ifi.Addr.String())
	}
	return t.Render()
}

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch versionFormat {
		case formatJSON, formatYAML:
			enc := newEncoder(out, versionFormat)
			if err := enc.Encode(version.Info()); err != nil {
				return err
			}
			if c, ok := enc.(interface{ Close() error }); ok {
				return c.Close()
			}
			return nil
		case formatText:
			fmt.Fprintf(out, "mdns-discover %s (commit: %s)\n", version.Version, version.Commit)
			return nil
		default:
			return validateFormat(versionFormat)
		}
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionFormat, "format", "o", formatText, "Output format (text, json, yaml)")
}
