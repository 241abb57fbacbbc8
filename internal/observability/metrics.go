package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// degree-day pipeline.
type Metrics struct {
	FieldsConsumed  prometheus.Counter
	ReportsProduced prometheus.Counter
	ProcessErrors   prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Aggregation metrics.
	WeightedFallbacks prometheus.Counter
	DuplicatesDropped prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FieldsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "degreeday",
			Name:      "fields_consumed_total",
			Help:      "Total temperature fields read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "degreeday",
			Name:      "reports_produced_total",
			Help:      "Total reports written to the sink topic.",
		}),
		ProcessErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "degreeday",
			Name:      "process_errors_total",
			Help:      "Total fields that failed parsing or aggregation.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "degreeday",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "degreeday",
			Name:      "batch_size",
			Help:      "Number of fields per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "degreeday",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch aggregate-store-report cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		WeightedFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "degreeday",
			Name:      "weighted_fallbacks_total",
			Help:      "Fields whose weighted mean was unavailable and published without it.",
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "degreeday",
			Name:      "duplicates_dropped_total",
			Help:      "Records dropped on merge because the (model, run, date) key already existed.",
		}),
	}

	prometheus.MustRegister(
		m.FieldsConsumed,
		m.ReportsProduced,
		m.ProcessErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.WeightedFallbacks,
		m.DuplicatesDropped,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FieldsConsumed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "degreeday", Name: "fields_consumed_total"}),
		ReportsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "degreeday", Name: "reports_produced_total"}),
		ProcessErrors:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "degreeday", Name: "process_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "degreeday", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "degreeday", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "degreeday", Name: "batch_processing_duration_seconds"}),
		WeightedFallbacks:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "degreeday", Name: "weighted_fallbacks_total"}),
		DuplicatesDropped:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "degreeday", Name: "duplicates_dropped_total"}),
	}
}
