package main

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/spf13/pflag"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/internal/config"
)

// discoveryFlags are the flags shared by every command that runs a discovery.
type discoveryFlags struct {
	iface        string
	interval     time.Duration
	timeout      time.Duration
	includeEmpty bool
	matchService bool
}

func (f *discoveryFlags) register(fs *pflag.FlagSet, defaultTimeout time.Duration) {
	fs.StringVarP(&f.iface, "interface", "i", "", "IPv4 address of the interface to use (default: all interfaces)")
	fs.DurationVar(&f.interval, "interval", time.Second, "Minimum time between query rounds")
	fs.DurationVarP(&f.timeout, "timeout", "t", defaultTimeout, "Stop after this long (0 = until interrupted)")
	fs.BoolVar(&f.includeEmpty, "include-empty", false, "Show responses that carry no records")
	fs.BoolVar(&f.matchService, "match-service", false, "Only show responses that answer for the requested service")
}

// settings is the effective discovery configuration of one command.
type settings struct {
	Interface    netip.Addr
	Interval     time.Duration
	Timeout      time.Duration
	IgnoreEmpty  bool
	MatchService bool
}

// resolveSettings merges the config file defaults with the flags the user
// set explicitly.
func resolveSettings(fs *pflag.FlagSet, f *discoveryFlags, defaults config.Defaults) (settings, error) {
	s := settings{
		Interval:     defaults.QueryInterval,
		Timeout:      defaults.Timeout,
		IgnoreEmpty:  defaults.IgnoreEmpty,
		MatchService: defaults.MatchService,
	}

	addr, ok, err := defaults.InterfaceAddr()
	if err != nil {
		return s, err
	}
	if ok {
		s.Interface = addr
	}

	if fs.Changed("interface") {
		addr, err := netip.ParseAddr(f.iface)
		if err != nil || !addr.Is4() {
			return s, fmt.Errorf("--interface must be an IPv4 address, got %q", f.iface)
		}
		s.Interface = addr
	}
	if fs.Changed("interval") {
		s.Interval = f.interval
	}
	if fs.Changed("timeout") {
		s.Timeout = f.timeout
	}
	if fs.Changed("include-empty") {
		s.IgnoreEmpty = !f.includeEmpty
	}
	if fs.Changed("match-service") {
		s.MatchService = f.matchService
	}

	if s.Interval <= 0 {
		return s, fmt.Errorf("query interval must be positive, got %s", s.Interval)
	}
	if s.Timeout < 0 {
		return s, fmt.Errorf("timeout must not be negative, got %s", s.Timeout)
	}
	return s, nil
}

// options converts s into discovery options. The timeout is left to the
// caller since resolve and discover apply it differently.
func (s settings) options() []discover.Option {
	opts := []discover.Option{
		discover.WithQueryInterval(s.Interval),
		discover.WithIgnoreEmpty(s.IgnoreEmpty),
		discover.WithServiceFilter(s.MatchService),
	}
	if s.Interface.IsValid() {
		opts = append(opts, discover.WithInterface(s.Interface))
	}
	return opts
}

func (s settings) params() map[string]string {
	iface := "all"
	if s.Interface.IsValid() {
		iface = s.Interface.String()
	}
	timeout := s.Timeout.String()
	if s.Timeout == 0 {
		timeout = "none"
	}
	return map[string]string{
		"Interface": iface,
		"Interval":  s.Interval.String(),
		"Timeout":   timeout,
	}
}
