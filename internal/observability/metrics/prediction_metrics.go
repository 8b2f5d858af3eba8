package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PredictionMetrics tracks the scoring pipeline's throughput.
type PredictionMetrics struct {
	predictionsTotal   *prometheus.CounterVec
	bulkRunsTotal      prometheus.Counter
	bulkProcessed      prometheus.Counter
	bulkFailures       prometheus.Counter
	populationByStatus *prometheus.GaugeVec
}

// NewPredictionMetrics registers the prediction collectors.
func NewPredictionMetrics(registerer prometheus.Registerer, cfg Config) *PredictionMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "churnguard"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	predictionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "churnguard_predictions_total",
			Help:        "Total prediction records written, by risk level.",
			ConstLabels: constLabels,
		},
		[]string{"level"},
	)

	bulkRunsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "churnguard_bulk_recompute_runs_total",
			Help:        "Total bulk recompute runs.",
			ConstLabels: constLabels,
		},
	)

	bulkProcessed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "churnguard_bulk_recompute_processed_total",
			Help:        "Total customers re-scored by bulk recompute.",
			ConstLabels: constLabels,
		},
	)

	bulkFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "churnguard_bulk_recompute_failures_total",
			Help:        "Total per-customer failures during bulk recompute.",
			ConstLabels: constLabels,
		},
	)

	populationByStatus := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "churnguard_population_by_status",
			Help:        "Current customer count by lifecycle status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)

	registerer.MustRegister(
		predictionsTotal,
		bulkRunsTotal,
		bulkProcessed,
		bulkFailures,
		populationByStatus,
	)

	return &PredictionMetrics{
		predictionsTotal:   predictionsTotal,
		bulkRunsTotal:      bulkRunsTotal,
		bulkProcessed:      bulkProcessed,
		bulkFailures:       bulkFailures,
		populationByStatus: populationByStatus,
	}
}

// IncPrediction counts one written prediction record.
func (m *PredictionMetrics) IncPrediction(level string) {
	if m == nil {
		return
	}
	m.predictionsTotal.WithLabelValues(level).Inc()
}

// ObserveBulkRun records the outcome of one bulk recompute run.
func (m *PredictionMetrics) ObserveBulkRun(processed, failed int) {
	if m == nil {
		return
	}
	m.bulkRunsTotal.Inc()
	m.bulkProcessed.Add(float64(processed))
	m.bulkFailures.Add(float64(failed))
}

// SetPopulation publishes the per-status customer counts.
func (m *PredictionMetrics) SetPopulation(status string, count int64) {
	if m == nil {
		return
	}
	m.populationByStatus.WithLabelValues(status).Set(float64(count))
}
