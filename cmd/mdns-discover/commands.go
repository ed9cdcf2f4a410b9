package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/internal/discovery"
	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/mdnserr"
	"github.com/muurk/mdns/internal/tui"
	"github.com/muurk/mdns/internal/ui"
	"github.com/muurk/mdns/resolve"
	"github.com/muurk/mdns/response"
)

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
	}
}

// resultRecord is the machine-readable form of one discovery result.
type resultRecord struct {
	Interface string             `json:"interface" yaml:"interface"`
	Received  time.Time          `json:"received" yaml:"received"`
	Response  *response.Response `json:"response,omitempty" yaml:"response,omitempty"`
	Error     string             `json:"error,omitempty" yaml:"error,omitempty"`
	Kind      string             `json:"kind,omitempty" yaml:"kind,omitempty"`
}

func newResultRecord(res discover.Result, received time.Time) resultRecord {
	rec := resultRecord{Interface: res.Interface, Received: received, Response: res.Response}
	if res.Err != nil {
		rec.Response = nil
		rec.Error = res.Err.Error()
		rec.Kind = mdnserr.Classify(res.Err).String()
	}
	return rec
}

// encoder writes one document per value in the requested format.
type encoder interface {
	Encode(v any) error
}

func newEncoder(w io.Writer, format string) encoder {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return enc
	}
	return json.NewEncoder(w)
}

// discover command flags
var (
	discoverOpts   discoveryFlags
	discoverFormat string
)

var discoverCmd = &cobra.Command{
	Use:     "discover <service>",
	Aliases: []string{"browse"},
	Short:   "Stream responses for a service",
	Long: `Query the network for a DNS-SD service and print every response heard.

Queries are repeated on the configured interval until the timeout elapses
or the command is interrupted. In text mode a summary of the distinct
instances seen is printed at the end. The json and yaml formats print one
document per response, suitable for piping into other tools.`,
	Example: `  # Browse Chromecasts for the configured default timeout
  mdns-discover discover _googlecast._tcp.local

  # Use an alias, run until interrupted, one JSON object per line
  mdns-discover discover googlecast --timeout 0 --format json

  # Only one interface, including empty responses
  mdns-discover discover http -i 192.168.1.20 --include-empty`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverOpts.register(discoverCmd.Flags(), 10*time.Second)
	discoverCmd.Flags().StringVarP(&discoverFormat, "format", "o", formatText, "Output format (text, json, yaml)")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if err := validateFormat(discoverFormat); err != nil {
		return err
	}
	service := registry.ResolveService(args[0])
	s, err := resolveSettings(cmd.Flags(), &discoverOpts, registry.Defaults)
	if err != nil {
		return err
	}

	log := logging.Named("discover")
	opts := append(s.options(), discover.WithTimeout(s.Timeout), discover.WithLogger(log))
	d, err := discover.All(service, opts...)
	if err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	defer d.Close()

	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)
	collector := discovery.NewCollector()
	enc := newEncoder(out, discoverFormat)
	if c, ok := enc.(io.Closer); ok {
		defer c.Close()
	}

	if discoverFormat == formatText {
		params := s.params()
		params["Service"] = service
		params["Sockets"] = strconv.Itoa(len(d.Interfaces()))
		printer.PrintHeader("Discover", "mdns-discover discover "+args[0], params)
		printer.Newline()
	}

	var responses, failures int
	results := d.Results()
	ctx := cmd.Context()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case res, ok := <-results:
			if !ok {
				break loop
			}
			now := time.Now()
			if res.Err != nil {
				failures++
			} else {
				responses++
				collector.Add(discovery.FromResponse(res.Response, res.Interface, now))
			}

			if discoverFormat != formatText {
				if err := enc.Encode(newResultRecord(res, now)); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				continue
			}
			if res.Err != nil {
				printer.PrintWarning("Receive error", map[string]string{
					"Interface": res.Interface,
					"Error":     res.Err.Error(),
				})
				continue
			}
			printer.PrintResponse(res.Response, res.Interface, now)
		}
	}

	if discoverFormat == formatText {
		printer.Newline()
		printer.PrintDevices(collector.Devices())
		printer.Newline()
		printer.PrintSuccess("Discovery finished", map[string]string{
			"Responses": strconv.Itoa(responses),
			"Errors":    strconv.Itoa(failures),
			"Devices":   strconv.Itoa(collector.Len()),
		})
	}
	log.Debug("Discovery command finished", zap.Int("responses", responses), zap.Int("errors", failures))
	return nil
}

// resolve command flags
var (
	resolveOpts   discoveryFlags
	resolveFormat string
	noRemember    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <service> <host>...",
	Short: "Wait for specific instances to announce themselves",
	Long: `Browse a service until every named instance has been seen or the timeout
elapses. Instance names must match the PTR target exactly, e.g.
"Living Room._googlecast._tcp.local".

Each instance found is printed once. Instances that were not seen are
reported at the end. Hosts found are remembered in the configuration file
with their last address and sighting time unless --no-remember is given.`,
	Example: `  # Wait up to 5 seconds for one printer
  mdns-discover resolve ipp office._ipp._tcp.local --timeout 5s

  # Several hosts, YAML output
  mdns-discover resolve _hap._tcp.local a._hap._tcp.local b._hap._tcp.local -o yaml`,
	Args: cobra.MinimumNArgs(2),
	RunE: runResolve,
}

func init() {
	resolveOpts.register(resolveCmd.Flags(), 5*time.Second)
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "o", formatText, "Output format (text, json, yaml)")
	resolveCmd.Flags().BoolVar(&noRemember, "no-remember", false, "Do not record found hosts in the configuration file")
}

func runResolve(cmd *cobra.Command, args []string) error {
	if err := validateFormat(resolveFormat); err != nil {
		return err
	}
	service := registry.ResolveService(args[0])
	hosts := args[1:]
	s, err := resolveSettings(cmd.Flags(), &resolveOpts, registry.Defaults)
	if err != nil {
		return err
	}
	if s.Timeout == 0 {
		return fmt.Errorf("resolve needs a timeout greater than zero")
	}

	// Resolution re-queries at twice the timeout, so only the initial round
	// is normally sent.
	s.Interval = 2 * s.Timeout
	opts := []resolve.Option{
		resolve.WithDiscoveryOptions(append(s.options(), discover.WithLogger(logging.Named("discover")))...),
		resolve.WithLogger(logging.Named("resolve")),
	}

	out := cmd.OutOrStdout()
	if resolveFormat != formatText {
		found, err := resolve.Multiple(cmd.Context(), service, hosts, s.Timeout, opts...)
		if err != nil {
			return err
		}
		remember(found)
		enc := newEncoder(out, resolveFormat)
		if c, ok := enc.(io.Closer); ok {
			defer c.Close()
		}
		return enc.Encode(resolveReport(service, hosts, found))
	}

	params := s.params()
	params["Service"] = service
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Resolve",
		Command: "mdns-discover resolve " + args[0],
		Params:  params,
		Hosts:   hosts,
		Output:  out,
	})

	var found []*response.Response
	_, err = runner.Run(cmd.Context(), func(ctx context.Context, onHost ui.HostCallback) (map[string]string, error) {
		for _, h := range hosts {
			onHost(h, ui.HostWaiting, "waiting")
		}
		var err error
		found, err = resolve.Multiple(ctx, service, hosts, s.Timeout, opts...)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool, len(found))
		for _, resp := range found {
			host, _ := resp.FirstHostname()
			seen[host] = true
			note := "no address"
			if addr, ok := resp.SocketAddr(); ok {
				note = addr.String()
			} else if ip, ok := resp.FirstIPAddr(); ok {
				note = ip.String()
			}
			onHost(host, ui.HostResolved, note)
		}
		for _, h := range hosts {
			if !seen[h] {
				onHost(h, ui.HostMissing, "not seen")
			}
		}
		return map[string]string{
			"Found":     strconv.Itoa(len(found)),
			"Requested": strconv.Itoa(len(unique(hosts))),
		}, nil
	})
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(out)
	for _, resp := range found {
		printer.Newline()
		printer.PrintResponse(resp, "", time.Now())
	}
	remember(found)
	return nil
}

// resolveOutput is the machine-readable result of a resolve.
type resolveOutput struct {
	Service string                        `json:"service" yaml:"service"`
	Found   map[string]*response.Response `json:"found" yaml:"found"`
	Missing []string                      `json:"missing" yaml:"missing"`
}

func resolveReport(service string, hosts []string, found []*response.Response) resolveOutput {
	out := resolveOutput{
		Service: service,
		Found:   make(map[string]*response.Response, len(found)),
		Missing: []string{},
	}
	for _, resp := range found {
		host, _ := resp.FirstHostname()
		out.Found[host] = resp
	}
	for _, h := range unique(hosts) {
		if _, ok := out.Found[h]; !ok {
			out.Missing = append(out.Missing, h)
		}
	}
	return out
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// remember records found hosts in the configuration file.
func remember(found []*response.Response) {
	if noRemember || len(found) == 0 {
		return
	}
	now := time.Now()
	for _, resp := range found {
		host, _ := resp.FirstHostname()
		ip := ""
		if addr, ok := resp.FirstIPAddr(); ok {
			ip = addr.String()
		}
		registry.RecordHostSeen(host, ip, now)
	}
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save remembered hosts", zap.Error(err))
	}
}

// watch command flags
var watchOpts discoveryFlags

var watchCmd = &cobra.Command{
	Use:   "watch <service>",
	Short: "Live view of the devices advertising a service",
	Long: `Open a full-screen view that lists every instance of a service as it
announces itself, with a feed of the latest responses.

Keys: up/down to select, enter for details, r to query now, e to toggle
empty responses, c to clear, q to quit. The devices seen are printed when
the view closes.`,
	Example: `  # Watch AirPlay receivers until quit
  mdns-discover watch airplay

  # Stop after one minute
  mdns-discover watch _hap._tcp.local --timeout 1m`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchOpts.register(watchCmd.Flags(), 0)
}

func runWatch(cmd *cobra.Command, args []string) error {
	service := registry.ResolveService(args[0])
	s, err := resolveSettings(cmd.Flags(), &watchOpts, registry.Defaults)
	if err != nil {
		return err
	}
	// The config default timeout is for one-shot commands.
	if !cmd.Flags().Changed("timeout") {
		s.Timeout = 0
	}

	// The view filters empty responses itself so they can be toggled.
	opts := append(s.options(),
		discover.WithIgnoreEmpty(false),
		discover.WithTimeout(s.Timeout),
		discover.WithLogger(logging.Named("discover")),
	)
	d, err := discover.All(service, opts...)
	if err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	defer d.Close()

	devices, err := tui.Run(cmd.Context(), service, d)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintDevices(devices)
	return nil
}
