package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/streamhost"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Bootstrap metrics
	BootstrapStepsTotal   metric.Int64Counter
	BootstrapStepDuration metric.Float64Histogram
	CertificatesGenerated metric.Int64Counter
	StreamerPathUpdates   metric.Int64Counter

	// HTTP metrics
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Bootstrap metrics
	m.BootstrapStepsTotal, _ = meter.Int64Counter(
		"streamhost.bootstrap.steps.total",
		metric.WithDescription("Total number of bootstrap steps run, by step and outcome"),
		metric.WithUnit("{step}"),
	)

	m.BootstrapStepDuration, _ = meter.Float64Histogram(
		"streamhost.bootstrap.step.duration",
		metric.WithDescription("Duration of bootstrap steps"),
		metric.WithUnit("ms"),
	)

	m.CertificatesGenerated, _ = meter.Int64Counter(
		"streamhost.bootstrap.certificates.generated.total",
		metric.WithDescription("Total number of self-signed certificates generated"),
		metric.WithUnit("{certificate}"),
	)

	m.StreamerPathUpdates, _ = meter.Int64Counter(
		"streamhost.bootstrap.streamer.resolved.total",
		metric.WithDescription("Total number of streamer binary resolutions that changed the configured path"),
		metric.WithUnit("{resolution}"),
	)

	// HTTP metrics
	m.RequestsTotal, _ = meter.Int64Counter(
		"streamhost.http.requests.total",
		metric.WithDescription("Total number of HTTP requests served"),
		metric.WithUnit("{request}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"streamhost.http.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"),
	)

	return m
}
