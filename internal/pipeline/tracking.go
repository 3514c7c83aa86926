package pipeline

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trend-pipeline/internal/model"
)

const metricsNamespace = "trend_pipeline"

// Tracker records per-source pipeline metrics. It is the only object
// shared between concurrently running source chains; prometheus
// collectors are safe for concurrent use. A nil Tracker records nothing.
type Tracker struct {
	registry *prometheus.Registry

	rowsRead      *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	quality       *prometheus.CounterVec
	points        *prometheus.CounterVec
	groups        *prometheus.CounterVec
	sourceRuns    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewTracker creates a tracker backed by its own prometheus registry.
func NewTracker() *Tracker {
	t := &Tracker{
		registry: prometheus.NewRegistry(),
		rowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_read_total",
			Help:      "Raw rows read from sources.",
		}, []string{"source"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_dropped_total",
			Help:      "Rows discarded before aggregation.",
		}, []string{"source", "reason"}),
		quality: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "quality_issues_total",
			Help:      "Recovered cell-level problems by field.",
		}, []string{"source", "field", "issue"}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "aggregated_points_total",
			Help:      "Aggregated points produced.",
		}, []string{"source"}),
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "groups_total",
			Help:      "Groups processed by trend outcome.",
		}, []string{"source", "outcome"}),
		sourceRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "source_runs_total",
			Help:      "Source chains executed by status.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent per stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	t.registry.MustRegister(
		t.rowsRead, t.rowsDropped, t.quality, t.points,
		t.groups, t.sourceRuns, t.stageDuration,
	)
	return t
}

// Registry exposes the underlying prometheus registry.
func (t *Tracker) Registry() *prometheus.Registry {
	if t == nil {
		return nil
	}
	return t.registry
}

// Handler serves the tracker's metrics in the prometheus exposition format.
func (t *Tracker) Handler() http.Handler {
	if t == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// ObserveStage records the time since start against stage.
func (t *Tracker) ObserveStage(stage string, start time.Time) {
	if t == nil {
		return
	}
	t.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordSource folds a finished source result into the counters.
func (t *Tracker) RecordSource(res model.SourceResult) {
	if t == nil {
		return
	}
	status := "ok"
	if res.Failed() {
		status = "failed"
	}
	t.sourceRuns.WithLabelValues(status).Inc()

	if q := res.Quality; q != nil {
		t.rowsRead.WithLabelValues(res.Source).Add(float64(q.RowsRead))
		t.rowsDropped.WithLabelValues(res.Source, "blank").Add(float64(q.BlankRows))
		t.rowsDropped.WithLabelValues(res.Source, "policy").Add(float64(q.DroppedRows))
		for issue, m := range map[string]map[string]int{
			"date_parse":       q.DateFailures,
			"numeric_parse":    q.NumericFailures,
			"unknown_category": q.UnknownCategories,
		} {
			for field, n := range m {
				t.quality.WithLabelValues(res.Source, field, issue).Add(float64(n))
			}
		}
	}

	t.points.WithLabelValues(res.Source).Add(float64(len(res.Points)))
	for _, g := range res.Groups {
		outcome := "fitted"
		if g.Model == nil {
			outcome = "unfitted"
		}
		t.groups.WithLabelValues(res.Source, outcome).Inc()
	}
}
