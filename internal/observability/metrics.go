package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "floodfreq"

// Metrics holds the Prometheus counters and histograms for analysis runs.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec // labels: outcome={success,error}
	FitsTotal        *prometheus.CounterVec // labels: family, outcome={success,error}
	SelectedTotal    *prometheus.CounterVec // labels: family
	AnalysisDuration prometheus.Histogram
	SeriesLength     prometheus.Histogram

	// Bootstrap metrics.
	BootstrapAttempts prometheus.Counter
	BootstrapDegraded prometheus.Counter
	BootstrapDuration prometheus.Histogram

	gatherer prometheus.Gatherer
}

func newMetrics() *Metrics {
	return &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Frequency analyses by outcome.",
		}, []string{"outcome"}),
		FitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fits_total",
			Help:      "Distribution fits by family and outcome.",
		}, []string{"family", "outcome"}),
		SelectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selected_distribution_total",
			Help:      "Distributions used for design values.",
		}, []string{"family"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete frequency analysis.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SeriesLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "series_length_years",
			Help:      "Number of annual records per analysed series.",
			Buckets:   []float64{2, 5, 10, 20, 30, 50, 75, 100},
		}),
		BootstrapAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_attempts_total",
			Help:      "Bootstrap resamples drawn, including discarded refits.",
		}),
		BootstrapDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_degraded_total",
			Help:      "Analyses whose confidence bounds were dropped.",
		}),
		BootstrapDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bootstrap_duration_seconds",
			Help:      "Duration of the bootstrap stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.AnalysesTotal,
		m.FitsTotal,
		m.SelectedTotal,
		m.AnalysisDuration,
		m.SeriesLength,
		m.BootstrapAttempts,
		m.BootstrapDegraded,
		m.BootstrapDuration,
	}
}

// NewMetrics creates and registers all analysis metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	m.gatherer = reg
	return m
}

// WriteTextfile writes the current metric values in the node_exporter textfile
// format, for batch runs that exit before any scrape.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
