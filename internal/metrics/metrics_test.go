package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.QuerySent("192.168.1.2")
	m.QuerySent("192.168.1.2")
	m.QuerySent("10.0.0.2")
	m.QueryThrottled()
	m.ResponseReceived("192.168.1.2")
	m.ResponseFiltered(ReasonEmpty)
	m.DecodeError("10.0.0.2")
	m.DatagramDropped("10.0.0.2")
	m.SocketOpened()
	m.SocketOpened()
	m.SocketClosed()

	tests := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{"sent on first interface", m.queriesSent.WithLabelValues("192.168.1.2"), 2},
		{"sent on second interface", m.queriesSent.WithLabelValues("10.0.0.2"), 1},
		{"throttled", m.queriesThrottled, 1},
		{"received", m.responsesReceived.WithLabelValues("192.168.1.2"), 1},
		{"filtered empty", m.responsesFiltered.WithLabelValues(ReasonEmpty), 1},
		{"filtered service", m.responsesFiltered.WithLabelValues(ReasonService), 0},
		{"decode errors", m.decodeErrors.WithLabelValues("10.0.0.2"), 1},
		{"dropped", m.datagramsDropped.WithLabelValues("10.0.0.2"), 1},
		{"active sockets", m.activeSockets, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.collector); got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.QuerySent("x")
	m.QueryThrottled()
	m.ResponseReceived("x")
	m.ResponseFiltered(ReasonService)
	m.DecodeError("x")
	m.DatagramDropped("x")
	m.SocketOpened()
	m.SocketClosed()
	m.ClientConnected()
	m.ClientDisconnected()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := m.Middleware(h); got == nil {
		t.Error("Middleware() on nil Metrics returned nil handler")
	}
}

func TestMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resolve", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	count, err := testutil.GatherAndCount(reg, "mdns_gateway_request_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("request duration series = %d, want 1", count)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() != "mdns_gateway_request_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && strings.TrimSpace(label.GetValue()) == "418" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected a series labelled status=418")
	}
}
