package discover

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/mdnserr"
	"github.com/muurk/mdns/internal/metrics"
	"github.com/muurk/mdns/internal/throttle"
	"github.com/muurk/mdns/internal/transport"
	"github.com/muurk/mdns/response"
)

// Result is one item of a discovery stream: a decoded response, or an error
// from the interface it arrived on.
type Result struct {
	Response  *response.Response
	Err       error
	Interface string
}

// Discovery is a running mDNS browse session for one service name. It owns
// one socket per interface and emits every decoded, accepted response.
type Discovery struct {
	service  string
	cfg      config
	sockets  []socket
	throttle *throttle.Throttle
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics

	results chan Result
	solicit chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc

	releaseOnce sync.Once
	releaseErr  error
	closeOnce   sync.Once
}

// All opens a discovery session for service, e.g. "_googlecast._tcp.local".
// Sockets are bound immediately; queries start on first consumption through
// Results, Next or Solicit.
func All(service string, opts ...Option) (*Discovery, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := transport.BuildQuery(service); err != nil {
		return nil, err
	}
	if cfg.interval <= 0 {
		return nil, mdnserr.Config("query interval must be positive, got %s", cfg.interval)
	}
	if cfg.timeout < 0 {
		return nil, mdnserr.Config("timeout must not be negative, got %s", cfg.timeout)
	}

	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	log := cfg.logger
	if log == nil {
		log = logging.Named("discover")
	}
	log = log.With(zap.String("service", service))

	sockets := cfg.sockets
	if sockets == nil {
		var err error
		sockets, err = openSockets(cfg, log)
		if err != nil {
			return nil, err
		}
	}

	return &Discovery{
		service:  service,
		cfg:      cfg,
		sockets:  sockets,
		throttle: throttle.New(cfg.interval, cfg.clock),
		clock:    cfg.clock,
		log:      log,
		metrics:  cfg.metrics,
		results:  make(chan Result),
		solicit:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

func openSockets(cfg config, log *zap.Logger) ([]socket, error) {
	addrs := cfg.interfaces
	if len(addrs) == 0 {
		local, err := transport.LocalIPv4Addrs()
		if err != nil {
			log.Warn("Interface enumeration failed, using default interface", zap.Error(err))
		}
		addrs = local
	}
	if len(addrs) == 0 {
		addrs = []netip.Addr{netip.IPv4Unspecified()}
	}

	var (
		sockets []socket
		errs    error
	)
	for _, addr := range addrs {
		conn, err := transport.Listen(addr,
			transport.WithLogger(log.Named("transport")),
			transport.WithMetrics(cfg.metrics),
		)
		if err != nil {
			log.Warn("Failed to open interface socket", zap.Stringer("interface", addr), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		sockets = append(sockets, connSocket{conn: conn})
	}

	if len(sockets) == 0 {
		return nil, &mdnserr.Error{Kind: mdnserr.KindIO, Op: "open sockets", Err: errs}
	}
	log.Debug("Discovery sockets ready", zap.Int("count", len(sockets)), zap.Int("failed", len(multierr.Errors(errs))))
	return sockets, nil
}

// Service returns the service name being browsed.
func (d *Discovery) Service() string {
	return d.service
}

// Interfaces returns the interface addresses the session listens on.
func (d *Discovery) Interfaces() []string {
	out := make([]string, len(d.sockets))
	for i, s := range d.sockets {
		out[i] = s.Interface()
	}
	return out
}

// IgnoreEmpty changes the empty-response filter. It only has an effect
// before consumption starts.
func (d *Discovery) IgnoreEmpty(ignore bool) *Discovery {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		d.log.Warn("IgnoreEmpty has no effect once discovery has started")
		return d
	}
	d.cfg.ignoreEmpty = ignore
	return d
}

// ServiceFilter changes the service-name filter. It only has an effect
// before consumption starts.
func (d *Discovery) ServiceFilter(enabled bool) *Discovery {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		d.log.Warn("ServiceFilter has no effect once discovery has started")
		return d
	}
	d.cfg.serviceFilter = enabled
	return d
}

// Results starts the session if needed and returns the stream of results.
// The channel closes when the session is closed, its timeout elapses or every
// interface receiver has stopped.
func (d *Discovery) Results() <-chan Result {
	d.start()
	return d.results
}

// Next returns the next response. Error items are returned as errors; once
// the stream has ended Next returns an error matching ErrClosed.
func (d *Discovery) Next(ctx context.Context) (*response.Response, error) {
	results := d.Results()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-results:
		if !ok {
			return nil, mdnserr.Closed("next")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Response, nil
	}
}

// Solicit requests an immediate query round. The round is still subject to
// the minimum query interval.
func (d *Discovery) Solicit() {
	d.start()
	select {
	case d.solicit <- struct{}{}:
	default:
	}
}

// Close stops the session, closes every socket and waits for the session's
// goroutines. It is safe to call more than once.
func (d *Discovery) Close() error {
	d.mu.Lock()
	wasStarted := d.started
	d.closed = true
	cancel := d.cancel
	d.mu.Unlock()

	if wasStarted {
		cancel()
		<-d.done
	} else {
		d.closeOnce.Do(func() { close(d.results) })
	}
	return d.release()
}

func (d *Discovery) start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	ctx, cancel := context.WithCancel(context.Background())
	if d.cfg.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = d.clock.WithTimeout(ctx, d.cfg.timeout)
		parentCancel := cancel
		cancel = func() {
			cancelTimeout()
			parentCancel()
		}
	}
	d.cancel = cancel

	go d.run(ctx)
}

func (d *Discovery) run(ctx context.Context) {
	defer close(d.done)

	var receivers sync.WaitGroup
	for _, s := range d.sockets {
		receivers.Add(1)
		go func() {
			defer receivers.Done()
			d.receive(ctx, s)
		}()
	}

	solicitCtx, stopSolicit := context.WithCancel(ctx)
	solicitDone := make(chan struct{})
	go func() {
		defer close(solicitDone)
		d.solicitLoop(solicitCtx)
	}()

	receivers.Wait()
	stopSolicit()
	<-solicitDone

	d.closeOnce.Do(func() { close(d.results) })
	if err := d.release(); err != nil {
		d.log.Warn("Failed to close sockets", zap.Error(err))
	}
	d.log.Debug("Discovery finished")
}

func (d *Discovery) release() error {
	d.releaseOnce.Do(func() {
		var errs error
		for _, s := range d.sockets {
			errs = multierr.Append(errs, s.Close())
		}
		d.releaseErr = errs
	})
	return d.releaseErr
}

func (d *Discovery) solicitLoop(ctx context.Context) {
	if d.cfg.initialQuery {
		d.throttle.Mark()
		d.sendRound(ctx)
	}

	ticker := d.clock.Ticker(d.cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ticks are already an interval apart; the throttle only records them.
			d.throttle.Mark()
			d.sendRound(ctx)
		case <-d.solicit:
			if !d.throttle.TryAcquire() {
				d.metrics.QueryThrottled()
				last, _ := d.throttle.LastSent()
				d.log.Debug("Query round throttled", zap.Duration("since_last", d.clock.Since(last)))
				continue
			}
			d.sendRound(ctx)

			// Restart the schedule so the next tick is a full interval away.
			ticker.Reset(d.cfg.interval)
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// sendRound sends one query on every interface.
func (d *Discovery) sendRound(ctx context.Context) {
	for _, s := range d.sockets {
		err := s.SendQuery(ctx, d.service)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if !errors.Is(err, mdnserr.ErrClosed) {
			d.log.Warn("Failed to send query", zap.String("interface", s.Interface()), zap.Error(err))
		}
	}
}

func (d *Discovery) receive(ctx context.Context, s socket) {
	iface := s.Interface()
	for {
		resp, err := s.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, mdnserr.ErrClosed) {
				return
			}
			if !d.emit(ctx, Result{Err: err, Interface: iface}) {
				return
			}
			if errors.Is(err, mdnserr.ErrDecode) {
				continue
			}
			d.log.Warn("Receiver stopped", zap.String("interface", iface), zap.Error(err))
			return
		}

		if !d.accept(resp) {
			continue
		}
		if !d.emit(ctx, Result{Response: resp, Interface: iface}) {
			return
		}
	}
}

func (d *Discovery) accept(resp *response.Response) bool {
	if d.cfg.ignoreEmpty && resp.IsEmpty() {
		d.metrics.ResponseFiltered(metrics.ReasonEmpty)
		return false
	}
	if d.cfg.serviceFilter && !resp.HasAnswerFor(d.service) {
		d.metrics.ResponseFiltered(metrics.ReasonService)
		return false
	}
	return true
}

func (d *Discovery) emit(ctx context.Context, res Result) bool {
	select {
	case d.results <- res:
		return true
	case <-ctx.Done():
		return false
	}
}

// With runs a discovery for service and calls fn for every response until
// timeout elapses or fn returns an error. A zero timeout runs until ctx is
// done, in which case ctx.Err() is returned. Decode errors are skipped; other
// error items end the run. Returning ErrStop from fn ends the run without
// error.
func With(ctx context.Context, service string, timeout time.Duration, fn func(*response.Response) error, opts ...Option) error {
	d, err := All(service, append(opts, WithTimeout(timeout))...)
	if err != nil {
		return err
	}
	defer d.Close()

	for {
		resp, err := d.Next(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, mdnserr.ErrClosed):
			return nil
		case errors.Is(err, mdnserr.ErrDecode):
			d.log.Debug("Skipping undecodable message", zap.Error(err))
			continue
		default:
			return err
		}

		if err := fn(resp); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// ErrStop can be returned by a With callback to end discovery early.
var ErrStop = errors.New("discover: stop")
