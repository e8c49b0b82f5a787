package observability

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of one pub invocation.
// The process is short lived, so metrics are written to a node_exporter
// textfile on exit instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry

	// API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Bundle metrics
	BundlesTotal *prometheus.CounterVec
	BundleBytes  prometheus.Histogram
	BundleFiles  prometheus.Histogram

	// Command metrics
	CommandsTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics on a private registry
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "publify"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of Netlify API requests",
			},
			[]string{"operation", "method", "status_code"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Netlify API request latency",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),

		BundlesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bundles_total",
				Help:      "Total number of deployment bundles built",
			},
			[]string{"status"},
		),
		BundleBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bundle_size_bytes",
				Help:      "Size of uploaded deployment bundles",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		BundleFiles: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bundle_files",
				Help:      "Number of files in deployment bundles",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),

		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of pub commands run",
			},
			[]string{"command", "status"},
		),
	}

	m.registry.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.BundlesTotal,
		m.BundleBytes,
		m.BundleFiles,
		m.CommandsTotal,
	)

	return m
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAPIRequest records a Netlify API request
func (m *Metrics) RecordAPIRequest(operation, method string, statusCode int, seconds float64) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	m.APIRequestsTotal.WithLabelValues(operation, method, code).Inc()
	m.APIRequestDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordBundle records a bundle build
func (m *Metrics) RecordBundle(status string, files int, bytes int64) {
	m.BundlesTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.BundleFiles.Observe(float64(files))
		m.BundleBytes.Observe(float64(bytes))
	}
}

// RecordCommand records the outcome of a CLI command
func (m *Metrics) RecordCommand(command string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}

// WriteTextfile writes all metrics in the text exposition format to path
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Status label values
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
