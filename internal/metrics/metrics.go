// Package metrics holds the Prometheus instruments of the discovery engine
// and the HTTP gateway. A nil *Metrics is valid and records nothing.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons used for the mdns_responses_filtered_total label.
const (
	ReasonEmpty   = "empty"
	ReasonService = "service_mismatch"
)

type Metrics struct {
	queriesSent       *prometheus.CounterVec
	queriesThrottled  prometheus.Counter
	responsesReceived *prometheus.CounterVec
	responsesFiltered *prometheus.CounterVec
	decodeErrors      *prometheus.CounterVec
	datagramsDropped  *prometheus.CounterVec
	activeSockets     prometheus.Gauge

	gatewayClients  prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	promFactory := promauto.With(reg)
	return &Metrics{
		queriesSent: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdns_queries_sent_total",
			Help: "Total number of mDNS queries written to the multicast group",
		}, []string{"interface"}),
		queriesThrottled: promFactory.NewCounter(prometheus.CounterOpts{
			Name: "mdns_queries_throttled_total",
			Help: "Query rounds skipped because the minimum interval had not elapsed",
		}),
		responsesReceived: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdns_responses_received_total",
			Help: "Total number of mDNS messages decoded",
		}, []string{"interface"}),
		responsesFiltered: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdns_responses_filtered_total",
			Help: "Decoded responses suppressed by a discovery filter",
		}, []string{"reason"}),
		decodeErrors: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdns_decode_errors_total",
			Help: "Datagrams whose DNS envelope could not be decoded",
		}, []string{"interface"}),
		datagramsDropped: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdns_datagrams_dropped_total",
			Help: "Datagrams discarded before decoding (empty or shorter than a DNS header)",
		}, []string{"interface"}),
		activeSockets: promFactory.NewGauge(prometheus.GaugeOpts{
			Name: "mdns_active_sockets",
			Help: "Currently open interface sockets",
		}),
		gatewayClients: promFactory.NewGauge(prometheus.GaugeOpts{
			Name: "mdns_gateway_stream_clients",
			Help: "Websocket clients currently streaming discovery results",
		}),
		requestDuration: promFactory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mdns_gateway_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the gateway",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"path", "status"}),
	}
}

func (m *Metrics) QuerySent(iface string) {
	if m == nil {
		return
	}
	m.queriesSent.WithLabelValues(iface).Inc()
}

func (m *Metrics) QueryThrottled() {
	if m == nil {
		return
	}
	m.queriesThrottled.Inc()
}

func (m *Metrics) ResponseReceived(iface string) {
	if m == nil {
		return
	}
	m.responsesReceived.WithLabelValues(iface).Inc()
}

func (m *Metrics) ResponseFiltered(reason string) {
	if m == nil {
		return
	}
	m.responsesFiltered.WithLabelValues(reason).Inc()
}

func (m *Metrics) DecodeError(iface string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(iface).Inc()
}

func (m *Metrics) DatagramDropped(iface string) {
	if m == nil {
		return
	}
	m.datagramsDropped.WithLabelValues(iface).Inc()
}

func (m *Metrics) SocketOpened() {
	if m == nil {
		return
	}
	m.activeSockets.Inc()
}

func (m *Metrics) SocketClosed() {
	if m == nil {
		return
	}
	m.activeSockets.Dec()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.gatewayClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.gatewayClients.Dec()
}

type responseInterceptor struct {
	http.ResponseWriter
	status int
}

func (w *responseInterceptor) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the wrapped writer so websocket upgrades work
// behind the middleware.
func (w *responseInterceptor) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware records request durations by path and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		interceptor := &responseInterceptor{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(interceptor, r)

		m.requestDuration.With(prometheus.Labels{
			"path":   r.URL.Path,
			"status": strconv.Itoa(interceptor.status),
		}).Observe(time.Since(start).Seconds())
	})
}
