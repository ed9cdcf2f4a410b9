package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/metrics"
)

const (
	// DefaultResolveTimeout applies when /resolve is called without a timeout
	DefaultResolveTimeout = 5 * time.Second

	// MaxResolveTimeout caps the timeout a client may request
	MaxResolveTimeout = time.Minute

	defaultShutdownTimeout = 10 * time.Second
)

// Stream is a running discovery owned by one request.
// *discover.Discovery satisfies it.
type Stream interface {
	Results() <-chan discover.Result
	Solicit()
	Close() error
}

// OpenFunc starts a discovery for service.
type OpenFunc func(service string, opts ...discover.Option) (Stream, error)

// Config holds the server configuration
type Config struct {
	Addr            string            // Listen address, e.g. ":8053"
	CertPath        string            // TLS certificate (optional)
	KeyPath         string            // TLS private key (optional)
	ShutdownTimeout time.Duration     // Grace period for in-flight requests (default 10s)
	Discovery       []discover.Option // Applied to every discovery, e.g. an explicit interface

	// Registry receives the gateway and engine metrics and is served on
	// /metrics. Defaults to a fresh registry.
	Registry *prometheus.Registry

	// Open overrides how discoveries are started. Defaults to discover.All.
	Open OpenFunc

	Logger *zap.Logger
}

// Server is the HTTP gateway exposing mDNS discovery over websockets and JSON
type Server struct {
	config    Config
	log       *zap.Logger
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	tlsConfig *tls.Config
	upgrader  websocket.Upgrader
	open      OpenFunc
	handler   http.Handler

	wg      sync.WaitGroup
	mu      sync.Mutex
	clients map[string]context.CancelFunc
}

// New creates a new Server instance
func New(config Config) (*Server, error) {
	if (config.CertPath == "") != (config.KeyPath == "") {
		return nil, fmt.Errorf("both certificate and key must be provided together, or neither")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}

	log := config.Logger
	if log == nil {
		log = logging.Named("gateway")
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := metrics.New(registry)

	s := &Server{
		config:    config,
		log:       log,
		metrics:   m,
		registry:  registry,
		tlsConfig: tlsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]context.CancelFunc),
	}

	s.open = config.Open
	if s.open == nil {
		s.open = func(service string, opts ...discover.Option) (Stream, error) {
			opts = append([]discover.Option{
				discover.WithMetrics(m),
				discover.WithLogger(log.Named("discover")),
			}, opts...)
			d, err := discover.All(service, opts...)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	}

	s.handler = s.routes()
	return s, nil
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then stops accepting requests,
// disconnects websocket clients and waits for them to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.tlsConfig,
		ErrorLog:          zap.NewStdLog(s.log),
	}

	fields := []zap.Field{zap.Stringer("addr", ln.Addr())}
	if s.tlsConfig != nil {
		fields = append(fields, zap.String("cert", s.config.CertPath), zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
	}
	s.log.Info("Gateway listening", fields...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if s.tlsConfig != nil {
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			err = httpServer.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx, httpServer)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context, httpServer *http.Server) error {
	s.log.Info("Shutting down gateway...")

	err := httpServer.Shutdown(ctx)

	// Hijacked websocket connections are not tracked by http.Server.
	s.mu.Lock()
	for addr, cancel := range s.clients {
		s.log.Debug("Closing websocket client", zap.String("remote_addr", addr))
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All clients closed gracefully")
	case <-ctx.Done():
		s.log.Warn("Shutdown timeout, forcing close")
	}

	_ = s.log.Sync()
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ActiveClients returns the number of connected websocket clients
func (s *Server) ActiveClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) track(addr string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.clients[addr] = cancel
	s.mu.Unlock()
	s.metrics.ClientConnected()
}

func (s *Server) untrack(addr string) {
	s.mu.Lock()
	delete(s.clients, addr)
	s.mu.Unlock()
	s.metrics.ClientDisconnected()
}
