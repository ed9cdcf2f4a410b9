package discovery

import (
	"net/netip"
	"testing"
	"time"
)

func TestCollector_Deduplicates(t *testing.T) {
	c := NewCollector()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := &Device{Instance: "b._svc._tcp.local", DiscoveredAt: t0, LastSeen: t0, Interface: "eth"}
	if !c.Add(first) {
		t.Error("Add() of new instance = false, want true")
	}

	later := &Device{
		Instance:     "b._svc._tcp.local",
		IP:           netip.MustParseAddr("192.168.1.9"),
		Port:         9000,
		Hostname:     "b.local",
		Metadata:     map[string]string{"fn": "Bee"},
		Interface:    "wlan",
		DiscoveredAt: t0.Add(time.Second),
		LastSeen:     t0.Add(time.Second),
	}
	if c.Add(later) {
		t.Error("Add() of known instance = true, want false")
	}
	c.Add(&Device{Instance: "a._svc._tcp.local", DiscoveredAt: t0.Add(2 * time.Second)})
	c.Add(nil)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	got, ok := c.Get("b._svc._tcp.local")
	if !ok {
		t.Fatal("Get() ok = false")
	}
	if got.Address() != "192.168.1.9:9000" {
		t.Errorf("merged Address() = %v, want 192.168.1.9:9000", got.Address())
	}
	if got.Name() != "Bee" {
		t.Errorf("merged Name() = %v, want Bee", got.Name())
	}
	if !got.DiscoveredAt.Equal(t0) {
		t.Errorf("DiscoveredAt = %v, want first sighting %v", got.DiscoveredAt, t0)
	}
	if !got.LastSeen.Equal(t0.Add(time.Second)) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, t0.Add(time.Second))
	}

	devices := c.Devices()
	if devices[0].Instance != "b._svc._tcp.local" || devices[1].Instance != "a._svc._tcp.local" {
		t.Errorf("Devices() order = %v, %v; want first-seen first", devices[0].Instance, devices[1].Instance)
	}

	// Copies must not alias collector state.
	devices[0].Metadata["fn"] = "changed"
	if again, _ := c.Get("b._svc._tcp.local"); again.Name() != "Bee" {
		t.Error("mutating a returned device changed the collector")
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len() after Reset() = %d, want 0", c.Len())
	}
}

func TestCollector_KeepsIPv4OverLaterIPv6(t *testing.T) {
	c := NewCollector()
	c.Add(&Device{Instance: "x", IP: netip.MustParseAddr("10.0.0.1")})
	c.Add(&Device{Instance: "x", IP: netip.MustParseAddr("fe80::1")})

	got, _ := c.Get("x")
	if got.IP.String() != "10.0.0.1" {
		t.Errorf("IP = %v, want 10.0.0.1", got.IP)
	}
}
