// Mdns-discover browses the local network for DNS-SD services over
// multicast DNS.
//
// It streams raw responses, resolves specific instances, and offers a live
// terminal view of the devices advertising a service. Service names may be
// given in full ("_googlecast._tcp.local") or as an alias from the user
// configuration file ("googlecast").
//
// Usage:
//
//	mdns-discover [command] [flags]
//
// See 'mdns-discover --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/mdns/internal/config"
	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/urls"
	"github.com/muurk/mdns/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

// registry is the user configuration, loaded before every command runs.
var registry *config.Registry

var rootCmd = &cobra.Command{
	Use:   "mdns-discover",
	Short: "mDNS Service Discovery Utility",
	Long: `Browse the local network for DNS-SD services over multicast DNS.

Queries are sent on every usable IPv4 interface and every response heard on
the multicast group is shown. Service names may be written in full or as an
alias defined in the configuration file (see 'mdns-discover config show').

Protocol references:
  ` + urls.MulticastDNS + `
  ` + urls.DNSServiceDiscovery,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: `  # Stream every Chromecast response for 10 seconds
  mdns-discover discover googlecast

  # Wait for two printers to announce themselves
  mdns-discover resolve _ipp._tcp.local office._ipp._tcp.local lab._ipp._tcp.local

  # Live device view
  mdns-discover watch _airplay._tcp.local`,
	PersistentPreRunE: setup,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: $"+config.PathEnvVar+" or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file and $"+logging.LogLevelEnvVar)

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(interfacesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and initialises logging. The log level
// comes from --log-level, then $MDNS_LOG_LEVEL, then the config file.
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		if err := os.Setenv(config.PathEnvVar, configPath); err != nil {
			return fmt.Errorf("failed to set config path: %w", err)
		}
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	registry = reg

	level := logLevel
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		level = registry.Defaults.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	return nil
}
