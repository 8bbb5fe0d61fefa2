package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue reads one labelled series of a gathered counter family.
func counterValue(t *testing.T, g prometheus.Gatherer, name, label, value string) float64 {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestLedgerEvents(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.LedgerEvent(EventPayment)
	m.LedgerEvent(EventPayment)
	m.LedgerEvent(EventRoundClosed)

	if got := counterValue(t, registry, "tontine_ledger_events_total", "event", EventPayment); got != 2 {
		t.Errorf("payment events = %v, want 2", got)
	}
	if got := counterValue(t, registry, "tontine_ledger_events_total", "event", EventRoundClosed); got != 1 {
		t.Errorf("round_closed events = %v, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.LedgerEvent(EventPenalty)
	m.ObserveRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
}

func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)
	m.ObserveRequest(http.MethodPost, "/api/tontines", http.StatusCreated, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `tontine_http_requests_total{method="POST",route="/api/tontines",status="201"} 1`) {
		t.Errorf("request counter missing from output:\n%s", body)
	}
}
