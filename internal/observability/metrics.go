package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "field_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for scoring
// and the streaming pipeline.
type Metrics struct {
	// Scoring metrics.
	Predictions     *prometheus.CounterVec // labels: transport={http,kafka}, outcome
	RiskPercentage  prometheus.Histogram
	RawAnomalyScore prometheus.Histogram
	ScoringDuration prometheus.Histogram
	ArtifactsLoaded prometheus.Gauge

	// Streaming pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

var (
	riskBuckets     = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	rawScoreBuckets = []float64{-0.3, -0.2, -0.1, -0.05, 0, 0.05, 0.1, 0.2, 0.3}
)

func newMetrics() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Risk assessments by transport and outcome.",
		}, []string{"transport", "outcome"}),
		RiskPercentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_percentage",
			Help:      "Distribution of returned risk percentages.",
			Buckets:   riskBuckets,
		}),
		RawAnomalyScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "raw_anomaly_score",
			Help:      "Distribution of raw model decision scores.",
			Buckets:   rawScoreBuckets,
		}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Time to validate, encode, assemble, and score one observation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		ArtifactsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifacts_loaded",
			Help:      "1 when the encoder and model are loaded, 0 otherwise.",
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total observations read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total assessments written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total observations that could not be scored.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the streaming pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch consume-score-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Predictions,
		m.RiskPercentage,
		m.RawAnomalyScore,
		m.ScoringDuration,
		m.ArtifactsLoaded,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	}
}

// ObservePrediction records one scoring attempt. Risk and raw score are only
// observed for successful outcomes.
func (m *Metrics) ObservePrediction(transport, outcome string, risk int, raw float64, d time.Duration) {
	m.Predictions.WithLabelValues(transport, outcome).Inc()
	m.ScoringDuration.Observe(d.Seconds())
	if outcome != "success" {
		return
	}
	m.RiskPercentage.Observe(float64(risk))
	m.RawAnomalyScore.Observe(raw)
}
