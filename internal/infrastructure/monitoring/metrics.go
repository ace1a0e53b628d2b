package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	PredictionsTotal     *prometheus.CounterVec
	PredictLatency       prometheus.Histogram
	CorrectionsTotal     *prometheus.CounterVec
	CorrectionLatency    prometheus.Histogram
	FineTuneLoss         prometheus.Gauge
	FineTuneAccuracy     prometheus.Gauge
	ActiveVersion        *prometheus.GaugeVec
	CorrectionQueueDepth prometheus.Gauge
	ModelLoads           *prometheus.CounterVec
	ModelLoadLatency     prometheus.Histogram
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in the server; tests use a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskserve_predictions_total",
				Help: "Total number of predict calls.",
			},
			[]string{"risk_level", "result"},
		),
		PredictLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "riskserve_predict_latency_seconds",
				Help:    "Latency of predict calls.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
		CorrectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskserve_corrections_total",
				Help: "Total number of corrections processed, by outcome.",
			},
			[]string{"result"},
		),
		CorrectionLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "riskserve_correction_latency_seconds",
				Help:    "Duration of a full fine-tune and persist cycle.",
				Buckets: prometheus.DefBuckets,
			},
		),
		FineTuneLoss: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskserve_fine_tune_loss",
				Help: "Final epoch loss of the most recent fine-tune.",
			},
		),
		FineTuneAccuracy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskserve_fine_tune_accuracy",
				Help: "Final epoch accuracy of the most recent fine-tune.",
			},
		),
		ActiveVersion: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "riskserve_active_version_info",
				Help: "Set to 1 for the model version currently serving predictions.",
			},
			[]string{"version_id"},
		),
		CorrectionQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskserve_correction_queue_depth",
				Help: "Corrections accepted but not yet processed.",
			},
		),
		ModelLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskserve_model_loads_total",
				Help: "Total number of loads of the latest version from the store.",
			},
			[]string{"result"},
		),
		ModelLoadLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "riskserve_model_load_latency_seconds",
				Help:    "Latency of loading a version from the store.",
				Buckets: prometheus.DefBuckets,
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskserve_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskserve_http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordPrediction records metrics for a predict call.
func (m *Metrics) RecordPrediction(riskLevel, result string, duration time.Duration) {
	m.PredictionsTotal.WithLabelValues(riskLevel, result).Inc()
	m.PredictLatency.Observe(duration.Seconds())
}

// RecordCorrection records metrics for one correction cycle.
func (m *Metrics) RecordCorrection(result string, duration time.Duration) {
	m.CorrectionsTotal.WithLabelValues(result).Inc()
	m.CorrectionLatency.Observe(duration.Seconds())
}

// RecordFineTune sets the fine-tune gauges.
func (m *Metrics) RecordFineTune(loss, accuracy float64) {
	m.FineTuneLoss.Set(loss)
	m.FineTuneAccuracy.Set(accuracy)
}

// SetActiveVersion moves the info gauge to versionID. Only one series is kept.
func (m *Metrics) SetActiveVersion(versionID string) {
	m.ActiveVersion.Reset()
	m.ActiveVersion.WithLabelValues(versionID).Set(1)
}

// RecordModelLoad records a load of the latest version.
func (m *Metrics) RecordModelLoad(result string, duration time.Duration) {
	m.ModelLoads.WithLabelValues(result).Inc()
	m.ModelLoadLatency.Observe(duration.Seconds())
}

//Personal.AI order the ending
