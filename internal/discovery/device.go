package discovery

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/mdns/response"
)

// Device is a summary of one service instance built from a response
type Device struct {
	// Instance is the service instance name (e.g., "Living Room._googlecast._tcp.local")
	Instance string

	// Hostname is the SRV target host (e.g., "chromecast-abc.local")
	Hostname string

	// IP is the first advertised address, IPv4 preferred
	IP netip.Addr

	// Port is the SRV port, zero when the response carried no SRV record
	Port uint16

	// Metadata contains the TXT record key/value pairs
	// Common fields: "fn=Living Room", "md=Chromecast", "path=/"
	Metadata map[string]string

	// Interface is the local interface address the response arrived on
	Interface string

	// DiscoveredAt is when the device was first seen
	DiscoveredAt time.Time

	// LastSeen is when the device was last seen
	LastSeen time.Time
}

// FromResponse projects resp into a Device. It returns nil when the response
// names no instance (no PTR record).
func FromResponse(resp *response.Response, iface string, now time.Time) *Device {
	instance, ok := resp.FirstHostname()
	if !ok || instance == "" {
		return nil
	}

	d := &Device{
		Instance:     instance,
		Metadata:     parseTXT(resp.TXTValues()),
		Interface:    iface,
		DiscoveredAt: now,
		LastSeen:     now,
	}

	// Prefer IPv4, fallback to IPv6
	for rec := range resp.Records() {
		switch k := rec.Kind.(type) {
		case response.A:
			if !d.IP.Is4() {
				d.IP = k.Addr
			}
		case response.AAAA:
			if !d.IP.IsValid() {
				d.IP = k.Addr
			}
		case response.SRV:
			if d.Hostname == "" {
				d.Hostname = k.Target
				d.Port = k.Port
			}
		}
	}
	return d
}

// parseTXT splits "key=value" strings. Keys without '=' map to "".
func parseTXT(values []string) map[string]string {
	metadata := make(map[string]string, len(values))
	for _, txt := range values {
		if txt == "" {
			continue
		}
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// Name returns the friendly name: the "fn" TXT key when present, otherwise
// the first label of the instance name.
func (d *Device) Name() string {
	if fn := d.GetMetadata("fn"); fn != "" {
		return fn
	}
	name, _, _ := strings.Cut(d.Instance, ".")
	return name
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	if !d.IP.IsValid() {
		return fmt.Sprintf("%s (%s)", d.Name(), d.Instance)
	}
	return fmt.Sprintf("%s (%s) at %s", d.Name(), d.Instance, d.Address())
}

// Address returns "ip:port", or just the IP when the port is unknown.
func (d *Device) Address() string {
	if !d.IP.IsValid() {
		return ""
	}
	if d.Port == 0 {
		return d.IP.String()
	}
	return net.JoinHostPort(d.IP.String(), strconv.Itoa(int(d.Port)))
}

// BaseURL returns the HTTP base URL for the device, honouring a "path" TXT key
func (d *Device) BaseURL() string {
	addr := d.Address()
	if addr == "" {
		return ""
	}
	return "http://" + addr + d.GetMetadata("path")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// merge folds a newer sighting of the same instance into d.
func (d *Device) merge(newer *Device) {
	if newer.IP.IsValid() && !(d.IP.Is4() && !newer.IP.Is4()) {
		d.IP = newer.IP
	}
	if newer.Port != 0 {
		d.Port = newer.Port
		d.Hostname = newer.Hostname
	}
	for k, v := range newer.Metadata {
		if d.Metadata == nil {
			d.Metadata = make(map[string]string)
		}
		d.Metadata[k] = v
	}
	d.Interface = newer.Interface
	d.LastSeen = newer.LastSeen
}

func (d *Device) clone() *Device {
	c := *d
	if d.Metadata != nil {
		c.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
