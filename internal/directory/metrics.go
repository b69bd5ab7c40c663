package directory

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Load outcomes used as the "outcome" label.
const (
	outcomeSeeded    = "seeded"
	outcomeFetched   = "fetched"
	outcomeFailed    = "failed"
	outcomeRefreshed = "refreshed"
)

// Metrics holds Prometheus metrics for collection loading.
type Metrics struct {
	LoadsTotal            *prometheus.CounterVec
	LoadDuration          *prometheus.HistogramVec
	SnapshotEntities      *prometheus.GaugeVec
	DiscardedRecordsTotal *prometheus.CounterVec
	SynthesizedIDsTotal   *prometheus.CounterVec
}

// NewMetrics returns the process-wide loader metrics, registering them on
// first use.
//
// Metrics:
//   - directory_loads_total{kind,outcome} - seeded, fetched, failed, refreshed
//   - directory_load_duration_seconds{kind} - fetch latency
//   - directory_snapshot_entities{kind} - entities in the current snapshot
//   - directory_discarded_records_total{kind} - records that were not objects
//   - directory_synthesized_ids_total{kind} - identities the normalizer made up
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			LoadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "directory_loads_total",
					Help: "Total collection loads by outcome",
				},
				[]string{"kind", "outcome"},
			),
			LoadDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "directory_load_duration_seconds",
					Help:    "Duration of collection fetches in seconds",
					Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				},
				[]string{"kind"},
			),
			SnapshotEntities: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "directory_snapshot_entities",
					Help: "Number of entities in the current snapshot",
				},
				[]string{"kind"},
			),
			DiscardedRecordsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "directory_discarded_records_total",
					Help: "Records dropped because they were not objects",
				},
				[]string{"kind"},
			),
			SynthesizedIDsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "directory_synthesized_ids_total",
					Help: "Entity identities synthesized by the normalizer",
				},
				[]string{"kind"},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) recordLoad(kind Kind, outcome string) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) recordDuration(kind Kind, seconds float64) {
	if m == nil {
		return
	}
	m.LoadDuration.WithLabelValues(string(kind)).Observe(seconds)
}

func (m *Metrics) recordSnapshot(kind Kind, entities int, report NormalizeReport) {
	if m == nil {
		return
	}
	m.SnapshotEntities.WithLabelValues(string(kind)).Set(float64(entities))
	if report.Discarded > 0 {
		m.DiscardedRecordsTotal.WithLabelValues(string(kind)).Add(float64(report.Discarded))
	}
	if report.SynthesizedIDs > 0 {
		m.SynthesizedIDsTotal.WithLabelValues(string(kind)).Add(float64(report.SynthesizedIDs))
	}
}
