// Package resolve finds specific service instances by name using a
// short-lived mDNS discovery.
//
//	resp, err := resolve.One(ctx, "_googlecast._tcp.local", "mycast._googlecast._tcp.local", 15*time.Second)
//	if err != nil {
//	    return err
//	}
//	if resp == nil {
//	    fmt.Println("not found")
//	}
//
// The discovery's query interval is twice the timeout, so one query round is
// sent per resolution.
package resolve

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/mdnserr"
	"github.com/muurk/mdns/response"
)

// Source is a stream of discovery results. *discover.Discovery satisfies it.
type Source interface {
	Results() <-chan discover.Result
	Close() error
}

// Option configures a resolution.
type Option func(*options)

type options struct {
	discoverOpts []discover.Option
	source       Source
	clock        clock.Clock
	logger       *zap.Logger
}

// WithDiscoveryOptions passes options to the underlying discovery, e.g. an
// explicit interface. The query interval is always set from the timeout.
func WithDiscoveryOptions(opts ...discover.Option) Option {
	return func(o *options) {
		o.discoverOpts = append(o.discoverOpts, opts...)
	}
}

// WithSource resolves against src instead of opening a discovery. The
// source is closed when resolution ends.
func WithSource(src Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithClock sets the clock that enforces the timeout.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// WithLogger sets the logger. Defaults to logging.Named("resolve").
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// One waits up to timeout for a response whose first PTR target equals host
// exactly. It returns (nil, nil) when nothing matched in time. An error item
// from the discovery is returned immediately.
func One(ctx context.Context, service, host string, timeout time.Duration, opts ...Option) (*response.Response, error) {
	found, err := resolve(ctx, service, []string{host}, timeout, opts)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// Multiple waits up to timeout for one response per distinct host name and
// returns early once all have been seen. On timeout the responses found so
// far are returned, in arrival order.
func Multiple(ctx context.Context, service string, hosts []string, timeout time.Duration, opts ...Option) ([]*response.Response, error) {
	return resolve(ctx, service, hosts, timeout, opts)
}

func resolve(ctx context.Context, service string, hosts []string, timeout time.Duration, opts []Option) ([]*response.Response, error) {
	if timeout <= 0 {
		return nil, mdnserr.Config("resolve timeout must be positive, got %s", timeout)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	log := o.logger
	if log == nil {
		log = logging.Named("resolve")
	}

	pending := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		pending[h] = struct{}{}
	}
	if len(pending) == 0 {
		if o.source != nil {
			_ = o.source.Close()
		}
		return nil, nil
	}

	src := o.source
	if src == nil {
		d, err := discover.All(service, append(o.discoverOpts,
			discover.WithQueryInterval(2*timeout),
			discover.WithClock(o.clock),
		)...)
		if err != nil {
			return nil, err
		}
		src = d
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Debug("Failed to close discovery", zap.Error(err))
		}
	}()

	waitCtx, cancel := o.clock.WithTimeout(ctx, timeout)
	defer cancel()

	results := src.Results()
	var found []*response.Response
	for {
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			log.Debug("Resolve timed out", zap.Int("found", len(found)), zap.Int("missing", len(pending)))
			return found, nil

		case res, ok := <-results:
			if !ok {
				return found, nil
			}
			if res.Err != nil {
				return nil, res.Err
			}

			host, ok := res.Response.FirstHostname()
			if !ok {
				continue
			}
			if _, want := pending[host]; !want {
				continue
			}
			delete(pending, host)
			found = append(found, res.Response)
			log.Debug("Resolved host", zap.String("host", host), zap.String("interface", res.Interface))

			if len(pending) == 0 {
				return found, nil
			}
		}
	}
}
