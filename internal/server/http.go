package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/internal/logging"
	"github.com/muurk/mdns/internal/mdnserr"
	"github.com/muurk/mdns/internal/version"
	"github.com/muurk/mdns/resolve"
	"github.com/muurk/mdns/response"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleStream)
	mux.HandleFunc("GET /resolve", s.handleResolve)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return s.metrics.Middleware(s.logRequests(mux))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)
		if ce := s.log.Check(zap.DebugLevel, "Request headers"); ce != nil {
			ce.Write(
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("query", r.URL.RawQuery),
				zap.String("user_agent", r.UserAgent()),
			)
		}
		next.ServeHTTP(w, r)
	})
}

// ResolveResult is the /resolve response body
type ResolveResult struct {
	Service string         `json:"service"`
	Found   []ResolvedHost `json:"found"`
	Missing []string       `json:"missing"`
	Elapsed string         `json:"elapsed"`
}

// ResolvedHost pairs a requested host with the response that announced it
type ResolvedHost struct {
	Host     string             `json:"host"`
	Response *response.Response `json:"response"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	service, err := serviceParam(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hosts := q["host"]
	if len(hosts) == 0 {
		writeError(w, http.StatusBadRequest, mdnserr.Config("at least one host parameter is required"))
		return
	}
	timeout, err := durationParam(q, "timeout", DefaultResolveTimeout)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}

	opts := append(s.discoveryOptions(q), discover.WithQueryInterval(2*timeout))
	src, err := s.open(service, opts...)
	if err != nil {
		s.log.Warn("Failed to start discovery", zap.String("service", service), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	start := time.Now()
	found, err := resolve.Multiple(r.Context(), service, hosts, timeout,
		resolve.WithSource(src),
		resolve.WithLogger(s.log.Named("resolve")),
	)
	if err != nil {
		s.log.Warn("Resolve failed", zap.String("service", service), zap.Error(err))
		writeError(w, http.StatusBadGateway, err)
		return
	}

	result := ResolveResult{
		Service: service,
		Found:   make([]ResolvedHost, 0, len(found)),
		Missing: []string{},
		Elapsed: time.Since(start).Round(time.Millisecond).String(),
	}
	seen := make(map[string]bool, len(found))
	for _, resp := range found {
		host, _ := resp.FirstHostname()
		seen[host] = true
		result.Found = append(result.Found, ResolvedHost{Host: host, Response: resp})
	}
	for _, h := range hosts {
		if !seen[h] {
			result.Missing = append(result.Missing, h)
			seen[h] = true
		}
	}

	s.log.Info("Resolve finished",
		zap.String("service", service),
		zap.Int("found", len(result.Found)),
		zap.Int("missing", len(result.Missing)),
	)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ActiveClients(),
		"version": version.Version,
	})
}

// discoveryOptions builds the per-request discovery options on top of the
// server-wide ones.
func (s *Server) discoveryOptions(q url.Values) []discover.Option {
	opts := append([]discover.Option(nil), s.config.Discovery...)
	if v, ok := boolParam(q, "include_empty"); ok {
		opts = append(opts, discover.WithIgnoreEmpty(!v))
	}
	if v, ok := boolParam(q, "match_service"); ok {
		opts = append(opts, discover.WithServiceFilter(v))
	}
	return opts
}

func serviceParam(q url.Values) (string, error) {
	service := q.Get("service")
	if service == "" {
		return "", mdnserr.Config("service parameter is required")
	}
	if _, ok := dns.IsDomainName(service); !ok {
		return "", mdnserr.Config("invalid service name %q", service)
	}
	return service, nil
}

func durationParam(q url.Values, name string, def time.Duration) (time.Duration, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, mdnserr.Config("invalid %s %q", name, raw)
	}
	if d < 0 {
		return 0, mdnserr.Config("%s must not be negative", name)
	}
	if d > MaxResolveTimeout {
		return 0, mdnserr.Config("%s must not exceed %s", name, MaxResolveTimeout)
	}
	return d, nil
}

// boolParam reports the parsed value and whether the parameter was present
// and valid.
func boolParam(q url.Values, name string) (bool, bool) {
	raw := q.Get(name)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{
		Error: err.Error(),
		Kind:  mdnserr.Classify(err).String(),
	})
}
