package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"
)

// CurrentVersion is the only schema version this package reads and writes.
const CurrentVersion = 1

// Registry represents the entire user configuration file.
// It stores discovery defaults, service aliases and remembered hosts.
type Registry struct {
	Version  int               `yaml:"version"`
	Defaults Defaults          `yaml:"defaults"`
	Services map[string]string `yaml:"services,omitempty"` // alias -> service name
	Hosts    map[string]*Host  `yaml:"hosts,omitempty"`    // Keyed by instance hostname
}

// Defaults are applied to every discovery unless a CLI flag overrides them.
type Defaults struct {
	Interface     string        `yaml:"interface,omitempty"` // IPv4 address, empty = all interfaces
	QueryInterval time.Duration `yaml:"query_interval"`
	Timeout       time.Duration `yaml:"timeout"`
	IgnoreEmpty   bool          `yaml:"ignore_empty"`
	MatchService  bool          `yaml:"match_service"`
	LogLevel      string        `yaml:"log_level,omitempty"`
}

// Host represents user-defined metadata for a single service instance.
type Host struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastIP   string    `yaml:"last_ip,omitempty"`   // Last known IP address
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery time
}

// DefaultServices are the aliases written to a fresh configuration.
var DefaultServices = map[string]string{
	"airplay":    "_airplay._tcp.local",
	"googlecast": "_googlecast._tcp.local",
	"homekit":    "_hap._tcp.local",
	"http":       "_http._tcp.local",
	"ipp":        "_ipp._tcp.local",
	"spotify":    "_spotify-connect._tcp.local",
}

var validLogLevels = map[string]bool{
	"": true, "off": true, "silent": true,
	"debug": true, "info": true, "warn": true, "error": true,
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	services := make(map[string]string, len(DefaultServices))
	for alias, name := range DefaultServices {
		services[alias] = name
	}
	return &Registry{
		Version: CurrentVersion,
		Defaults: Defaults{
			QueryInterval: time.Second,
			Timeout:       10 * time.Second,
			IgnoreEmpty:   true,
		},
		Services: services,
		Hosts:    make(map[string]*Host),
	}
}

// ResolveService maps an alias to its service name. Names that are not
// aliases are returned unchanged.
func (r *Registry) ResolveService(nameOrAlias string) string {
	if name, ok := r.Services[strings.ToLower(nameOrAlias)]; ok {
		return name
	}
	return nameOrAlias
}

// SetAlias adds or replaces a service alias.
func (r *Registry) SetAlias(alias, service string) error {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == "" {
		return fmt.Errorf("alias must not be empty")
	}
	if _, ok := dns.IsDomainName(service); !ok || strings.TrimSpace(service) == "" {
		return fmt.Errorf("invalid service name %q", service)
	}
	if r.Services == nil {
		r.Services = make(map[string]string)
	}
	r.Services[alias] = service
	return nil
}

// RemoveAlias deletes an alias and reports whether it existed.
func (r *Registry) RemoveAlias(alias string) bool {
	alias = strings.ToLower(alias)
	if _, ok := r.Services[alias]; !ok {
		return false
	}
	delete(r.Services, alias)
	return true
}

// GetHost retrieves host metadata by hostname.
// Returns nil if the host doesn't exist in the registry.
func (r *Registry) GetHost(hostname string) *Host {
	return r.Hosts[hostname]
}

// EnsureHost ensures a host entry exists in the registry.
// Returns the host entry (existing or newly created).
func (r *Registry) EnsureHost(hostname string) *Host {
	if r.Hosts == nil {
		r.Hosts = make(map[string]*Host)
	}

	if host, exists := r.Hosts[hostname]; exists {
		return host
	}

	host := &Host{}
	r.Hosts[hostname] = host
	return host
}

// RecordHostSeen updates the last seen timestamp and IP for a host.
func (r *Registry) RecordHostSeen(hostname, ip string, seen time.Time) {
	host := r.EnsureHost(hostname)
	host.LastSeen = seen
	if ip != "" {
		host.LastIP = ip
	}
}

// SetNickname sets a user-friendly nickname for a host.
func (r *Registry) SetNickname(hostname, nickname string) {
	r.EnsureHost(hostname).Nickname = nickname
}

// Nickname returns the nickname for hostname, or "" when none is set.
func (r *Registry) Nickname(hostname string) string {
	if host := r.GetHost(hostname); host != nil {
		return host.Nickname
	}
	return ""
}

// InterfaceAddr parses Defaults.Interface. ok is false when no interface is
// configured.
func (d Defaults) InterfaceAddr() (addr netip.Addr, ok bool, err error) {
	if d.Interface == "" {
		return netip.Addr{}, false, nil
	}
	addr, err = netip.ParseAddr(d.Interface)
	if err != nil {
		return netip.Addr{}, false, fmt.Errorf("invalid interface address %q: %w", d.Interface, err)
	}
	if !addr.Is4() {
		return netip.Addr{}, false, fmt.Errorf("interface address %q is not IPv4", d.Interface)
	}
	return addr, true, nil
}

// Validate reports every problem found in the registry.
func (r *Registry) Validate() error {
	var errs error

	if r.Version != CurrentVersion {
		errs = multierr.Append(errs, fmt.Errorf("unsupported config version: %d (expected %d)", r.Version, CurrentVersion))
	}
	if r.Defaults.QueryInterval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("defaults.query_interval must be positive, got %s", r.Defaults.QueryInterval))
	}
	if r.Defaults.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("defaults.timeout must not be negative, got %s", r.Defaults.Timeout))
	}
	if !validLogLevels[strings.ToLower(r.Defaults.LogLevel)] {
		errs = multierr.Append(errs, fmt.Errorf("defaults.log_level %q is not one of debug, info, warn, error, off", r.Defaults.LogLevel))
	}
	if _, _, err := r.Defaults.InterfaceAddr(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("defaults.interface: %w", err))
	}
	for alias, service := range r.Services {
		if _, ok := dns.IsDomainName(service); !ok || service == "" {
			errs = multierr.Append(errs, fmt.Errorf("services.%s: invalid service name %q", alias, service))
		}
	}

	return errs
}
