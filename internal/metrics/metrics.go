package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "diskspan"

// Result labels for pack runs.
const (
	ResultOK              = "ok"
	ResultInvalidCapacity = "invalid_capacity"
	ResultRejectedItems   = "rejected_items"
)

// Metrics holds the collectors recorded for packing runs.
type Metrics struct {
	PackRuns     *prometheus.CounterVec
	ItemsPacked  prometheus.Counter
	BinsPerRun   prometheus.Histogram
	PackDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PackRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pack",
				Name:      "runs_total",
				Help:      "Total number of packing runs by result",
			},
			[]string{"result"},
		),
		ItemsPacked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pack",
				Name:      "items_total",
				Help:      "Total number of items placed into bins",
			},
		),
		BinsPerRun: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pack",
				Name:      "bins",
				Help:      "Number of bins produced by a successful run",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		PackDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pack",
				Name:      "duration_seconds",
				Help:      "Packing run latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
	}
	reg.MustRegister(m.PackRuns, m.ItemsPacked, m.BinsPerRun, m.PackDuration)
	return m
}

// ObservePack records one packing run. Bins and items are only counted for
// successful runs.
func (m *Metrics) ObservePack(result string, bins, items int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PackRuns.WithLabelValues(result).Inc()
	m.PackDuration.Observe(elapsed.Seconds())
	if result != ResultOK {
		return
	}
	m.ItemsPacked.Add(float64(items))
	m.BinsPerRun.Observe(float64(bins))
}

// Handler exposes the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
