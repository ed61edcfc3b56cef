package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	Enabled bool `koanf:"enabled"`
	// ServiceName identifies this service in trace backends.
	ServiceName    string         `koanf:"service_name"`
	ServiceVersion string         `koanf:"service_version"`
	Exporter       ExporterConfig `koanf:"exporter"`
}

type ExporterConfig struct {
	// Type selects the span exporter: "otlp", "stdout" or "none".
	Type string     `koanf:"type"`
	OTLP OTLPConfig `koanf:"otlp"`
}

type OTLPConfig struct {
	// Endpoint of the OTLP collector, e.g. "localhost:4318".
	Endpoint string            `koanf:"endpoint"`
	Headers  map[string]string `koanf:"headers"`
	Timeout  time.Duration     `koanf:"timeout"`
	// Insecure sends spans over HTTP instead of HTTPS.
	Insecure bool `koanf:"insecure"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "medex-negotiator",
		ServiceVersion: "1.0.0",
		Exporter: ExporterConfig{
			Type: "stdout",
			OTLP: OTLPConfig{
				Endpoint: "http://localhost:4318",
				Timeout:  10 * time.Second,
			},
		},
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required when OpenTelemetry is enabled")
	}
	switch c.Exporter.Type {
	case "otlp":
		if c.Exporter.OTLP.Endpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP exporter")
		}
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported exporter type: %s (supported: otlp, stdout, none)", c.Exporter.Type)
	}
	return nil
}

// TracerProvider wraps the SDK tracer provider, so callers only deal with Shutdown.
type TracerProvider struct {
	provider *trace.TracerProvider
}

// Initialize sets the global tracer provider and the W3C trace context
// propagator. When tracing is disabled, an exporterless provider is installed
// and spans go nowhere.
func Initialize(ctx context.Context, config Config) (*TracerProvider, error) {
	if !config.Enabled {
		noopProvider := trace.NewTracerProvider()
		otel.SetTracerProvider(noopProvider)
		return &TracerProvider{provider: noopProvider}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(ctx, config.Exporter)
	if err != nil {
		return nil, err
	}

	opts := []trace.TracerProviderOption{trace.WithResource(res)}
	if exporter != nil {
		opts = append(opts, trace.WithBatcher(exporter))
	}
	tp := trace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &TracerProvider{provider: tp}, nil
}

// newExporter returns the configured span exporter, or nil for type "none".
func newExporter(ctx context.Context, config ExporterConfig) (trace.SpanExporter, error) {
	switch config.Type {
	case "otlp":
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(config.OTLP.Endpoint),
			otlptracehttp.WithTimeout(config.OTLP.Timeout),
			// Collectors come and go during deployments, so retry for a while.
			otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
				Enabled:         true,
				InitialInterval: 1 * time.Second,
				MaxInterval:     5 * time.Second,
				MaxElapsedTime:  30 * time.Second,
			}),
		}
		if len(config.OTLP.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(config.OTLP.Headers))
		}
		if config.OTLP.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		return exporter, nil
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", config.Type)
	}
}

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}
