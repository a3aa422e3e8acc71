package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for one
// analysis run. They live on a private registry that is flushed to a
// node-exporter textfile when the run ends.
type Metrics struct {
	Registry *prometheus.Registry

	FilesRead        prometheus.Counter
	ReadErrors       prometheus.Counter
	EpochsExtracted  prometheus.Counter
	ArtifactsWritten *prometheus.CounterVec // labels: kind={series,field,figure}

	CrossingYear      *prometheus.GaugeVec // labels: scenario, phase={single,first,second}
	CrossingDistance  *prometheus.GaugeVec // labels: scenario, phase
	SignificantPoints *prometheus.GaugeVec // labels: scenario

	StageDuration *prometheus.HistogramVec // labels: stage
	LastSuccess   prometheus.Gauge
}

// NewMetrics creates all analysis metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_gwl",
			Name:      "files_read_total",
			Help:      "Ensemble member files read.",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_gwl",
			Name:      "read_errors_total",
			Help:      "Ensemble member files that failed to read.",
		}),
		EpochsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_gwl",
			Name:      "epochs_extracted_total",
			Help:      "Epoch means computed around warming-level crossings.",
		}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_gwl",
			Name:      "artifacts_written_total",
			Help:      "Output files written by kind.",
		}, []string{"kind"}),
		CrossingYear: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "climate_gwl",
			Name:      "crossing_year",
			Help:      "Calendar year at which the warming level was located.",
		}, []string{"scenario", "phase"}),
		CrossingDistance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "climate_gwl",
			Name:      "crossing_distance_celsius",
			Help:      "Absolute gap between the series value at the crossing and the warming level.",
		}, []string{"scenario", "phase"}),
		SignificantPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "climate_gwl",
			Name:      "significant_points",
			Help:      "Grid points whose epoch difference survives the FDR test.",
		}, []string{"scenario"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climate_gwl",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each analysis stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_gwl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished without error.",
		}),
	}

	m.Registry.MustRegister(
		m.FilesRead,
		m.ReadErrors,
		m.EpochsExtracted,
		m.ArtifactsWritten,
		m.CrossingYear,
		m.CrossingDistance,
		m.SignificantPoints,
		m.StageDuration,
		m.LastSuccess,
	)

	return m
}

// WriteTextfile flushes the registry in the text exposition format. An empty
// path disables the export.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
