package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "explorer"

// Stats summarizes a generation run.
type Stats struct {
	UniqueInstrumentations int
	VersionsProcessed      int
	TotalInstrumentations  int
	DedupHits              int
	MarkdownDocuments      int
	// Metric definitions in unique records named after a convention metric.
	ConventionMetrics int
}

// Savings is the share of stored references served by an existing blob, as
// a percentage.
func (s Stats) Savings() float64 {
	if s.TotalInstrumentations <= s.UniqueInstrumentations || s.TotalInstrumentations == 0 {
		return 0
	}
	return (1 - float64(s.UniqueInstrumentations)/float64(s.TotalInstrumentations)) * 100
}

// Metrics exposes run statistics through a dedicated Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	unique     prometheus.Gauge
	versions   prometheus.Gauge
	total      prometheus.Gauge
	dedupHits  prometheus.Gauge
	markdown   prometheus.Gauge
	semconv    prometheus.Gauge
	duration   prometheus.Gauge
	versionSec *prometheus.GaugeVec
}

// NewMetrics creates and registers the generator metrics.
func NewMetrics() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: metricsNamespace, Name: name, Help: help})
	}
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		unique:    gauge("unique_instrumentations", "Distinct instrumentation blobs written."),
		versions:  gauge("versions_processed", "Agent versions processed."),
		total:     gauge("instrumentations_total", "Instrumentation references across all versions."),
		dedupHits: gauge("dedup_hits", "References served by an existing blob."),
		markdown:  gauge("markdown_documents", "Distinct markdown documents written."),
		semconv:   gauge("convention_metrics", "Metric definitions in unique records that follow the semantic conventions."),
		duration:  gauge("generation_duration_seconds", "Wall time of the generation run."),
		versionSec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "version_duration_seconds",
			Help:      "Wall time spent processing one version.",
		}, []string{"version"}),
	}
	m.registry.MustRegister(m.unique, m.versions, m.total, m.dedupHits, m.markdown, m.semconv, m.duration, m.versionSec)
	return m
}

func (m *Metrics) observeVersion(version string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.versionSec.WithLabelValues(version).Set(elapsed.Seconds())
}

func (m *Metrics) observeRun(stats Stats, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.unique.Set(float64(stats.UniqueInstrumentations))
	m.versions.Set(float64(stats.VersionsProcessed))
	m.total.Set(float64(stats.TotalInstrumentations))
	m.dedupHits.Set(float64(stats.DedupHits))
	m.markdown.Set(float64(stats.MarkdownDocuments))
	m.semconv.Set(float64(stats.ConventionMetrics))
	m.duration.Set(elapsed.Seconds())
}

// WriteTextfile writes the current values in the node exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
