// Package telemetry wires OpenTelemetry tracing and metrics behind core.Telemetry.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gemfashion/storefront/core"
)

const instrumentationName = "github.com/gemfashion/storefront"

// Provider implements core.Telemetry with OpenTelemetry
type Provider struct {
	tracer        trace.Tracer
	metrics       *MetricInstruments
	traceProvider *sdktrace.TracerProvider
	meterProvider *sdkmetric.MeterProvider
	logger        core.Logger
}

var _ core.Telemetry = (*Provider)(nil)

// NewProvider builds tracer and meter providers from configuration and
// installs them globally. Spans go to OTLP (gRPC or HTTP per Protocol) when an
// endpoint is set, to stdout when Stdout is set, and nowhere otherwise (spans
// are still created for log correlation). Metrics are pushed over OTLP/HTTP
// when a metrics endpoint resolves.
func NewProvider(ctx context.Context, cfg core.TelemetryConfig, serviceName string, logger core.Logger) (*Provider, error) {
	logger = core.ForComponent(logger, "storefront/telemetry")
	if cfg.ServiceName != "" {
		serviceName = cfg.ServiceName
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(core.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(samplingRate(cfg)))),
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	var mp *sdkmetric.MeterProvider
	reader, err := newMetricReader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if reader != nil {
		mp = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	}

	return newProvider(sdktrace.NewTracerProvider(opts...), mp, cfg, logger), nil
}

// NewProviderWithExporter installs a provider that exports spans synchronously
// to exp and metrics to readers. Tests use it with in-memory exporters and
// manual readers.
func NewProviderWithExporter(exp sdktrace.SpanExporter, logger core.Logger, readers ...sdkmetric.Reader) *Provider {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	var mp *sdkmetric.MeterProvider
	if len(readers) > 0 {
		opts := make([]sdkmetric.Option, 0, len(readers))
		for _, r := range readers {
			opts = append(opts, sdkmetric.WithReader(r))
		}
		mp = sdkmetric.NewMeterProvider(opts...)
	}
	return newProvider(tp, mp, core.TelemetryConfig{Enabled: true, MetricsEnabled: true}, logger)
}

func newProvider(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider, cfg core.TelemetryConfig, logger core.Logger) *Provider {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := &Provider{
		tracer:        tp.Tracer(instrumentationName),
		traceProvider: tp,
		meterProvider: mp,
		logger:        core.ForComponent(logger, "storefront/telemetry"),
	}
	if cfg.MetricsEnabled {
		meter := otel.Meter(instrumentationName)
		if mp != nil {
			otel.SetMeterProvider(mp)
			meter = mp.Meter(instrumentationName)
		}
		p.metrics = NewMetricInstruments(meter)
	}

	p.logger.Info("Telemetry initialized", map[string]interface{}{
		"endpoint":        cfg.Endpoint,
		"protocol":        cfg.Protocol,
		"stdout":          cfg.Stdout,
		"metrics_enabled": cfg.MetricsEnabled,
		"metrics_export":  mp != nil,
	})
	return p
}

func usesHTTP(protocol string) bool {
	return protocol == "http" || protocol == "http/protobuf"
}

func hasScheme(endpoint string) bool {
	return strings.Contains(endpoint, "://")
}

func newExporter(ctx context.Context, cfg core.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch {
	case cfg.Endpoint != "" && usesHTTP(cfg.Protocol):
		var opts []otlptracehttp.Option
		if hasScheme(cfg.Endpoint) {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP/HTTP exporter: %w", err)
		}
		return exp, nil
	case cfg.Endpoint != "":
		var opts []otlptracegrpc.Option
		if hasScheme(cfg.Endpoint) {
			opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
		} else {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		return exp, nil
	case cfg.Stdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, nil
	}
}

// metricsEndpoint is where metrics are pushed, or "" to keep them in process
func metricsEndpoint(cfg core.TelemetryConfig) string {
	if !cfg.MetricsEnabled {
		return ""
	}
	if cfg.MetricsEndpoint != "" {
		return cfg.MetricsEndpoint
	}
	if usesHTTP(cfg.Protocol) {
		return cfg.Endpoint
	}
	return ""
}

func newMetricReader(ctx context.Context, cfg core.TelemetryConfig) (sdkmetric.Reader, error) {
	endpoint := metricsEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}

	var opts []otlpmetrichttp.Option
	if hasScheme(endpoint) {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval)), nil
}

func samplingRate(cfg core.TelemetryConfig) float64 {
	if !cfg.TracingEnabled && cfg.Enabled {
		return 0
	}
	if cfg.SamplingRate <= 0 || cfg.SamplingRate > 1 {
		return 1
	}
	return cfg.SamplingRate
}

// StartSpan starts a new telemetry span
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric records a counter increment, or a histogram sample for names
// ending in "_ms" or ".duration"
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	if p.metrics == nil {
		return
	}
	if err := p.metrics.Record(context.Background(), name, value, labels); err != nil {
		p.logger.Debug("Metric dropped", map[string]interface{}{
			"metric": name,
			"error":  err.Error(),
		})
	}
}

// Shutdown flushes and stops the tracer and meter providers
func (p *Provider) Shutdown(ctx context.Context) error {
	err := p.traceProvider.Shutdown(ctx)
	if p.meterProvider != nil {
		err = errors.Join(err, p.meterProvider.Shutdown(ctx))
	}
	return err
}

// otelSpan wraps an OpenTelemetry span to implement core.Span
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}
