// Mdns-gateway exposes mDNS service discovery to remote clients over HTTP.
//
// Clients open a websocket to stream discovery results for a service, or
// call /resolve to wait for named instances. Prometheus metrics for the
// gateway and the discovery engine are served on /metrics.
//
// Usage:
//
//	mdns-gateway serve [flags]
//
// See 'mdns-gateway serve --help' for available options.
package main

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/internal/config"
	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/server"
	"github.com/muurk/mdns/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mdns-gateway",
	Short: "mDNS Discovery Gateway",
	Long: `An HTTP gateway that runs mDNS discoveries on behalf of remote clients.

Endpoints:
  GET /ws?service=NAME           stream discovery results over a websocket
  GET /resolve?service=NAME&host=HOST...  wait for named instances
  GET /healthz                   liveness and connected client count
  GET /metrics                   Prometheus metrics`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	listenAddr string
	certPath   string
	keyPath    string
	logLevel   string
	ifaceAddr  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the gateway and serve until interrupted.

The gateway serves plain HTTP unless both --cert and --key are given. Every
discovery it runs uses all usable IPv4 interfaces, or only --interface when
set. The interface and log level default to the values in the
configuration file.`,
	Example: `  # Plain HTTP on the default port
  mdns-gateway serve

  # HTTPS on a custom port with debug logging
  mdns-gateway serve --listen :8443 --cert cert.pem --key key.pem --log-level debug

  # Only discover on one interface
  mdns-gateway serve --interface 192.168.1.20`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8053", "Address to listen on")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (optional)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file (optional)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from config, then info")
	serveCmd.Flags().StringVarP(&ifaceAddr, "interface", "i", "", "IPv4 address of the interface to discover on (default: all)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate: Either both cert and key are provided, or neither
	if (certPath != "") != (keyPath != "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	if certPath != "" {
		if _, err := os.Stat(certPath); os.IsNotExist(err) {
			return fmt.Errorf("certificate file not found: %s", certPath)
		}
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			return fmt.Errorf("private key file not found: %s", keyPath)
		}
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = reg.Defaults.LogLevel
	}
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		// A server is not silent by default
		level = "info"
	}
	if err := logging.Initialize(level); err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	defer logging.Sync()

	var opts []discover.Option
	iface, ok, err := reg.Defaults.InterfaceAddr()
	if err != nil {
		return err
	}
	if ifaceAddr != "" {
		iface, err = netip.ParseAddr(ifaceAddr)
		if err != nil || !iface.Is4() {
			return fmt.Errorf("--interface must be an IPv4 address, got %q", ifaceAddr)
		}
		ok = true
	}
	if ok {
		opts = append(opts, discover.WithInterface(iface))
	}
	opts = append(opts,
		discover.WithQueryInterval(reg.Defaults.QueryInterval),
		discover.WithIgnoreEmpty(reg.Defaults.IgnoreEmpty),
		discover.WithServiceFilter(reg.Defaults.MatchService),
	)

	srv, err := server.New(server.Config{
		Addr:      listenAddr,
		CertPath:  certPath,
		KeyPath:   keyPath,
		Discovery: opts,
		Logger:    logging.Named("gateway"),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logging.Info("Starting mdns-gateway",
		zap.String("version", version.Full()),
		zap.String("listen", listenAddr),
		zap.Bool("tls", certPath != ""),
	)
	return srv.Start()
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mdns-gateway %s (commit: %s)\n", version.Version, version.Commit)
	},
}
