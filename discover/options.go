package discover

import (
	"net/netip"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/muurk/mdns/internal/metrics"
)

const (
	// DefaultQueryInterval is the spacing between query rounds.
	DefaultQueryInterval = time.Second
)

// Option configures a Discovery.
type Option func(*config)

type config struct {
	interfaces    []netip.Addr
	interval      time.Duration
	ignoreEmpty   bool
	serviceFilter bool
	initialQuery  bool
	timeout       time.Duration
	clock         clock.Clock
	logger        *zap.Logger
	metrics       *metrics.Metrics

	// sockets replaces interface enumeration and binding. Tests only.
	sockets []socket
}

func defaultConfig() config {
	return config{
		interval:     DefaultQueryInterval,
		ignoreEmpty:  true,
		initialQuery: true,
	}
}

// WithInterface restricts discovery to the interface owning addr. It may be
// given more than once. Without it every usable local IPv4 interface is used.
func WithInterface(addr netip.Addr) Option {
	return func(c *config) {
		c.interfaces = append(c.interfaces, addr)
	}
}

// WithQueryInterval sets how often a query round is sent.
func WithQueryInterval(d time.Duration) Option {
	return func(c *config) {
		c.interval = d
	}
}

// WithIgnoreEmpty controls whether responses with no records are dropped.
// Defaults to true.
func WithIgnoreEmpty(ignore bool) Option {
	return func(c *config) {
		c.ignoreEmpty = ignore
	}
}

// WithServiceFilter drops responses that carry no answer named after the
// queried service. Defaults to false: every decoded message on the group is
// delivered, as other hosts' traffic is visible on the shared port.
func WithServiceFilter(enabled bool) Option {
	return func(c *config) {
		c.serviceFilter = enabled
	}
}

// WithInitialQuery controls whether the first query is sent as soon as
// consumption starts rather than after one interval. Defaults to true.
func WithInitialQuery(enabled bool) Option {
	return func(c *config) {
		c.initialQuery = enabled
	}
}

// WithTimeout bounds the lifetime of the session. The results channel closes
// once it elapses. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithClock sets the clock driving the ticker, throttle and timeout.
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.clock = clk
	}
}

// WithLogger sets the logger. Defaults to logging.Named("discover").
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics records session activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}
