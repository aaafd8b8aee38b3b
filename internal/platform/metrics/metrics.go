package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for AugmentRuns.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics provides observability for augmentation and polish passes.
type Metrics struct {
	AugmentRuns      *prometheus.CounterVec
	AugmentSubjects  prometheus.Counter
	AugmentRows      prometheus.Counter
	AugmentWarnings  prometheus.Counter
	AugmentDuration  prometheus.Histogram
	PolishDuplicates *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates a Metrics instance registered on reg. A nil reg uses a fresh
// registry, which keeps repeated construction in tests safe.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		AugmentRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "multistate_augment_runs_total",
			Help: "Augmentation runs by outcome",
		}, []string{"outcome"}),
		AugmentSubjects: factory.NewCounter(prometheus.CounterOpts{
			Name: "multistate_augment_subjects_total",
			Help: "Subjects expanded by successful augmentation runs",
		}),
		AugmentRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "multistate_augment_rows_total",
			Help: "Transition rows emitted by successful augmentation runs",
		}),
		AugmentWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "multistate_augment_warnings_total",
			Help: "Warnings raised while augmenting",
		}),
		AugmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "multistate_augment_duration_seconds",
			Help:    "Duration of augmentation runs",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		PolishDuplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "multistate_polish_duplicate_groups_total",
			Help: "Same-time transition groups found by polish, by kind",
		}, []string{"kind"}),
		gatherer: reg,
	}
}

// ObserveAugment records one augmentation run. Call with time.Now() taken at
// the start of the run.
func (m *Metrics) ObserveAugment(start time.Time, outcome string, subjects, rows, warnings int) {
	if m == nil {
		return
	}
	m.AugmentRuns.WithLabelValues(outcome).Inc()
	m.AugmentDuration.Observe(time.Since(start).Seconds())
	if outcome != OutcomeOK {
		return
	}
	m.AugmentSubjects.Add(float64(subjects))
	m.AugmentRows.Add(float64(rows))
	m.AugmentWarnings.Add(float64(warnings))
}

// ObservePolish records duplicate groups found by a polish pass.
func (m *Metrics) ObservePolish(conflicts, redundant int) {
	if m == nil {
		return
	}
	m.PolishDuplicates.WithLabelValues("conflict").Add(float64(conflicts))
	m.PolishDuplicates.WithLabelValues("redundant").Add(float64(redundant))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
