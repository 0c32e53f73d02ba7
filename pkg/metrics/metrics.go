// Package metrics defines the Prometheus collectors recorded by estimation
// runs and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a process. A nil *Metrics is
// valid and records nothing, so library code can take one unconditionally.
type Metrics struct {
	SetOperationsTotal      *prometheus.CounterVec
	QuadruplesTotal         prometheus.Counter
	SaturatedEstimatesTotal prometheus.Counter
	DetectionsIndexedTotal  prometheus.Counter
	BucketFillRatio         prometheus.Gauge
	SaturatedBuckets        prometheus.Gauge
	RunDuration             *prometheus.HistogramVec
	RunsTotal               *prometheus.CounterVec
	Accuracy                *prometheus.GaugeVec
	SinkWritesTotal         *prometheus.CounterVec
	SinkBreakerState        *prometheus.GaugeVec
}

// New creates all collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SetOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "set_operations_total",
				Help: "Set operations performed by the matcher, by operation (union, intersect).",
			},
			[]string{"op"},
		),
		QuadruplesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matcher_quadruples_total",
				Help: "Epoch quadruples evaluated by the commuter search.",
			},
		),
		SaturatedEstimatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "saturated_estimates_total",
				Help: "Cardinality estimates clamped because every bit was set.",
			},
		),
		DetectionsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "detections_indexed_total",
				Help: "Detections replayed into detection indexes.",
			},
		),
		BucketFillRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_bucket_fill_ratio",
				Help: "Mean bit fill ratio of non-empty index buckets in the last built index.",
			},
		),
		SaturatedBuckets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_saturated_buckets",
				Help: "Saturated buckets in the last built index.",
			},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "run_duration_seconds",
				Help:    "Wall time of a complete estimation run by set backing.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"backing"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runs_total",
				Help: "Estimation runs by set backing, mode and status.",
			},
			[]string{"backing", "mode", "status"},
		),
		Accuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "estimate_accuracy",
				Help: "Accuracy of the last run by accounting variant (coarse, mid, fine).",
			},
			[]string{"variant"},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_sink_writes_total",
				Help: "Result writes by sink and status.",
			},
			[]string{"sink", "status"},
		),
		SinkBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "result_sink_breaker_state",
				Help: "Circuit breaker state per sink (0=closed, 1=open, 2=half-open).",
			},
			[]string{"sink"},
		),
	}

	reg.MustRegister(
		m.SetOperationsTotal,
		m.QuadruplesTotal,
		m.SaturatedEstimatesTotal,
		m.DetectionsIndexedTotal,
		m.BucketFillRatio,
		m.SaturatedBuckets,
		m.RunDuration,
		m.RunsTotal,
		m.Accuracy,
		m.SinkWritesTotal,
		m.SinkBreakerState,
	)

	return m
}

// ObserveSetOps adds union and intersect counts.
func (m *Metrics) ObserveSetOps(unions, intersects int) {
	if m == nil {
		return
	}
	m.SetOperationsTotal.WithLabelValues("union").Add(float64(unions))
	m.SetOperationsTotal.WithLabelValues("intersect").Add(float64(intersects))
}

// ObserveQuadruples adds evaluated epoch quadruples.
func (m *Metrics) ObserveQuadruples(n int) {
	if m == nil {
		return
	}
	m.QuadruplesTotal.Add(float64(n))
}

// ObserveSaturation counts one clamped estimate.
func (m *Metrics) ObserveSaturation() {
	if m == nil {
		return
	}
	m.SaturatedEstimatesTotal.Inc()
}

// ObserveIndex records the size and fill of a freshly built index.
func (m *Metrics) ObserveIndex(detections int, meanFill float64, saturated int) {
	if m == nil {
		return
	}
	m.DetectionsIndexedTotal.Add(float64(detections))
	m.BucketFillRatio.Set(meanFill)
	m.SaturatedBuckets.Set(float64(saturated))
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(backing, mode, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(backing, mode, status).Inc()
	if status == "ok" {
		m.RunDuration.WithLabelValues(backing).Observe(seconds)
	}
}

// ObserveAccuracy sets the accuracy gauge of one accounting variant.
func (m *Metrics) ObserveAccuracy(variant string, accuracy float64) {
	if m == nil {
		return
	}
	m.Accuracy.WithLabelValues(variant).Set(accuracy)
}

// ObserveSinkWrite counts one result write.
func (m *Metrics) ObserveSinkWrite(sink string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SinkWritesTotal.WithLabelValues(sink, status).Inc()
}

// ObserveBreaker sets the breaker state gauge of a sink.
func (m *Metrics) ObserveBreaker(sink string, state int) {
	if m == nil {
		return
	}
	m.SinkBreakerState.WithLabelValues(sink).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
