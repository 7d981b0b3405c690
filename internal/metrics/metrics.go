// Package metrics exposes Prometheus metrics for CodeQL invocations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ghastoolkit"

// Collector records CodeQL CLI invocations and database transfers.
type Collector struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	downloads   *prometheus.CounterVec
}

// New registers the toolkit metrics on registry. A nil registry gets a new
// one with the Go and process collectors.
func New(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codeql",
			Name:      "invocations_total",
			Help:      "Total number of codeql CLI invocations.",
		}, []string{"subcommand", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "codeql",
			Name:      "invocation_duration_seconds",
			Help:      "Duration of codeql CLI invocations.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800, 3600},
		}, []string{"subcommand"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "databases",
			Name:      "downloads_total",
			Help:      "Total number of database downloads.",
		}, []string{"language", "status"}),
	}
	registry.MustRegister(c.invocations, c.duration, c.downloads)
	return c
}

// ObserveCommand records a finished codeql invocation.
func (c *Collector) ObserveCommand(subcommand string, elapsed time.Duration, err error) {
	c.invocations.WithLabelValues(subcommand, status(err)).Inc()
	c.duration.WithLabelValues(subcommand).Observe(elapsed.Seconds())
}

// ObserveDownload records a finished database download.
func (c *Collector) ObserveDownload(language string, err error) {
	c.downloads.WithLabelValues(language, status(err)).Inc()
}

// Handler returns an HTTP handler serving the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the current metrics in the text exposition format,
// for node_exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
