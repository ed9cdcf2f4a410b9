package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/resolve"
	"github.com/muurk/mdns/response"
)

const (
	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// QuickScanTimeout is the timeout used by QuickScan
	QuickScanTimeout = 3 * time.Second
)

// Scanner collects the devices advertising one service
type Scanner struct {
	// Service is the DNS-SD service name, e.g. "_googlecast._tcp.local"
	Service string

	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	// Options are passed to the underlying discovery
	Options []discover.Option
}

// NewScanner creates a new scanner for service with default settings
func NewScanner(service string, opts ...discover.Option) *Scanner {
	return &Scanner{
		Service: service,
		Timeout: DefaultScanTimeout,
		Options: opts,
	}
}

// ScanForDevices discovers all devices advertising the service. It runs for
// the full timeout and returns every distinct instance seen.
func (s *Scanner) ScanForDevices(ctx context.Context) ([]*Device, error) {
	collector := NewCollector()

	// Responses must carry an answer for the service to be a device of ours.
	opts := append([]discover.Option{discover.WithServiceFilter(true)}, s.Options...)
	err := discover.With(ctx, s.Service, s.Timeout, func(resp *response.Response) error {
		collector.Add(FromResponse(resp, "", time.Now()))
		return nil
	}, opts...)
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("failed to browse for %s: %w", s.Service, err)
	}

	return collector.Devices(), nil
}

// WaitForDevice waits for a specific instance name
// Returns the device or an error if not found within timeout
func (s *Scanner) WaitForDevice(ctx context.Context, instance string) (*Device, error) {
	resp, err := resolve.One(ctx, s.Service, instance, s.Timeout,
		resolve.WithDiscoveryOptions(s.Options...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", instance, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("device %s not found within %s", instance, s.Timeout)
	}
	return FromResponse(resp, "", time.Now()), nil
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(ctx context.Context, service string, timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner(service)
	scanner.Timeout = timeout
	return scanner.ScanForDevices(ctx)
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan(ctx context.Context, service string) ([]*Device, error) {
	return ScanForDevices(ctx, service, QuickScanTimeout)
}

// FindDevice searches for a specific instance with default timeout
func FindDevice(ctx context.Context, service, instance string) (*Device, error) {
	return NewScanner(service).WaitForDevice(ctx, instance)
}
