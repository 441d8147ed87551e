package metrics

import "github.com/prometheus/client_golang/prometheus"

// AnalysisMetrics exposes counters/histograms for the risk analysis flow.
type AnalysisMetrics struct {
	analysesTotal      *prometheus.CounterVec
	flagsTotal         *prometheus.CounterVec
	predictionLatency  prometheus.Histogram
	predictionFailures prometheus.Counter
}

func NewAnalysisMetrics(reg prometheus.Registerer) *AnalysisMetrics {
	m := &AnalysisMetrics{
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serenity",
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Total analyses by recommended action",
		}, []string{"action"}),
		flagsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serenity",
			Subsystem: "analysis",
			Name:      "safety_flags_total",
			Help:      "Total safety flags matched by flag category",
		}, []string{"flag"}),
		predictionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "serenity",
			Subsystem: "model",
			Name:      "prediction_latency_seconds",
			Help:      "Latency of vectorize+predict calls",
			Buckets:   prometheus.DefBuckets,
		}),
		predictionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "serenity",
			Subsystem: "model",
			Name:      "prediction_failures_total",
			Help:      "Total classifier inference failures",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.analysesTotal, m.flagsTotal, m.predictionLatency, m.predictionFailures)
	return m
}

func (m *AnalysisMetrics) ObserveAnalysis(action string) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(action).Inc()
}

func (m *AnalysisMetrics) ObserveFlag(flag string) {
	if m == nil {
		return
	}
	m.flagsTotal.WithLabelValues(flag).Inc()
}

func (m *AnalysisMetrics) ObservePredictionLatency(seconds float64) {
	if m == nil {
		return
	}
	m.predictionLatency.Observe(seconds)
}

func (m *AnalysisMetrics) ObservePredictionFailure() {
	if m == nil {
		return
	}
	m.predictionFailures.Inc()
}
