package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservePack(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePack(ResultOK, 3, 12, time.Millisecond)
	m.ObservePack(ResultOK, 1, 2, time.Millisecond)
	m.ObservePack(ResultRejectedItems, 0, 5, time.Millisecond)

	if got := testutil.ToFloat64(m.PackRuns.WithLabelValues(ResultOK)); got != 2 {
		t.Fatalf("expected 2 ok runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.PackRuns.WithLabelValues(ResultRejectedItems)); got != 1 {
		t.Fatalf("expected 1 rejected run, got %v", got)
	}
	if got := testutil.ToFloat64(m.ItemsPacked); got != 14 {
		t.Fatalf("expected 14 packed items, got %v", got)
	}
}

func TestObservePackNilReceiver(t *testing.T) {
	var m *Metrics
	m.ObservePack(ResultOK, 1, 1, time.Millisecond)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObservePack(ResultOK, 2, 4, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `diskspan_pack_runs_total{result="ok"} 1`) {
		t.Fatalf("expected pack runs counter in output:\n%s", rec.Body.String())
	}
}
