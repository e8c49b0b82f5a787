package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for distributed tracing
type TracingConfig struct {
	// Enabled determines if tracing is enabled
	Enabled bool
	// ServiceName is the name reported for pub
	ServiceName string
	// ServiceVersion is the version of pub
	ServiceVersion string
	// OTLPEndpoint is the OpenTelemetry collector endpoint (e.g., "localhost:4318")
	OTLPEndpoint string
	// SampleRate is the sampling rate (0.0 to 1.0, where 1.0 = 100%)
	SampleRate float64
	// Insecure disables TLS for the OTLP exporter
	Insecure bool
}

// DefaultTracingConfig returns a default tracing configuration
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:        false,
		ServiceName:    "publify",
		ServiceVersion: "dev",
		OTLPEndpoint:   "localhost:4318",
		SampleRate:     1.0,
		Insecure:       true,
	}
}

// Tracer wraps OpenTelemetry tracing functionality
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// NewTracer creates a new tracer with the given configuration
func NewTracer(ctx context.Context, config TracingConfig) (*Tracer, error) {
	if !config.Enabled {
		// Return a no-op tracer when disabled
		return &Tracer{
			tracer: otel.Tracer(config.ServiceName),
			config: config,
		}, nil
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.OTLPEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.ServiceVersion),
		),
		resource.WithHost(),
		resource.WithOS(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SampleRate)
	}

	// pub exits right after its last request, so spans are exported synchronously
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(config.ServiceName),
		config:   config,
	}, nil
}

// NoopTracer returns a disabled tracer
func NoopTracer() *Tracer {
	t, _ := NewTracer(context.Background(), DefaultTracingConfig())
	return t
}

// Shutdown flushes and stops the tracer
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// StartSpan starts a new span with the given name
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// RecordError records an error on the current span
func (t *Tracer) RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, opts...)
}

// IsEnabled returns whether tracing is enabled
func (t *Tracer) IsEnabled() bool {
	return t.config.Enabled
}

// Common attribute keys
var (
	AttrSiteID       = attribute.Key("site.id")
	AttrSiteURL      = attribute.Key("site.url")
	AttrCustomDomain = attribute.Key("site.custom_domain")
	AttrAPIOperation = attribute.Key("netlify.operation")
	AttrBundleFiles  = attribute.Key("bundle.files")
	AttrBundleBytes  = attribute.Key("bundle.bytes")
	AttrHTTPMethod   = attribute.Key("http.request.method")
	AttrHTTPStatus   = attribute.Key("http.response.status_code")
	AttrHTTPURL      = attribute.Key("url.full")
	AttrSourceCommit = attribute.Key("vcs.commit")
	AttrSourceBranch = attribute.Key("vcs.branch")
)

// RequestSpanAttributes returns common attributes for API request spans
func RequestSpanAttributes(operation, method, url string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrAPIOperation.String(operation),
		AttrHTTPMethod.String(method),
		AttrHTTPURL.String(url),
	}
}

// InjectHeaders writes the trace context of ctx into carrier headers
func InjectHeaders(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}
