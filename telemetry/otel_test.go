package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gemfashion/storefront/core"
)

func TestProvider_Spans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p := NewProviderWithExporter(exp, nil)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctx, span := p.StartSpan(context.Background(), "checkout.payment")
	span.SetAttribute("checkout.attempt", int64(2))
	span.SetAttribute("provider", "mock")
	span.SetAttribute("custom", struct{ A int }{1})
	span.RecordError(errors.New("declined"))
	span.End()
	require.NotNil(t, ctx)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "checkout.payment", got.Name)
	assert.Equal(t, codes.Error, got.Status.Code)
	assert.Contains(t, got.Attributes, attribute.Int64("checkout.attempt", 2))
	assert.Contains(t, got.Attributes, attribute.String("provider", "mock"))
	assert.Contains(t, got.Attributes, attribute.String("custom", "{1}"))
}

func TestProvider_RecordMetric(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	p := NewProviderWithExporter(tracetest.NewInMemoryExporter(), nil, reader)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	p.RecordMetric("storefront.payment.stk_push", 1, map[string]string{"outcome": "success"})
	p.RecordMetric("storefront.payment.stk_push", 1, map[string]string{"outcome": "success"})
	p.RecordMetric("storefront.assistant.stream_ms", 120, nil)
	assert.Len(t, p.metrics.counters, 1)
	assert.Len(t, p.metrics.histograms, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sum, ok := byName["storefront.payment.stk_push"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, 2.0, sum.DataPoints[0].Value)
	outcome, _ := sum.DataPoints[0].Attributes.Value("outcome")
	assert.Equal(t, "success", outcome.AsString())

	hist, ok := byName["storefront.assistant.stream_ms"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, "ms", byName["storefront.assistant.stream_ms"].Unit)
}

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  core.TelemetryConfig
		want string
	}{
		{"disabled", core.TelemetryConfig{Endpoint: "collector:4318", Protocol: "http"}, ""},
		{"grpc keeps metrics local", core.TelemetryConfig{MetricsEnabled: true, Endpoint: "collector:4317", Protocol: "grpc"}, ""},
		{"http reuses endpoint", core.TelemetryConfig{MetricsEnabled: true, Endpoint: "collector:4318", Protocol: "http/protobuf"}, "collector:4318"},
		{"explicit endpoint", core.TelemetryConfig{MetricsEnabled: true, Endpoint: "collector:4317", MetricsEndpoint: "http://metrics:4318/v1/metrics"}, "http://metrics:4318/v1/metrics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, metricsEndpoint(tt.cfg))
		})
	}
}

func TestNewProvider_HTTPExporters(t *testing.T) {
	cfg := core.TelemetryConfig{
		Enabled:         true,
		TracingEnabled:  true,
		MetricsEnabled:  true,
		Endpoint:        "http://127.0.0.1:1",
		Protocol:        "http/protobuf",
		Insecure:        true,
		MetricsInterval: time.Hour,
	}
	p, err := NewProvider(context.Background(), cfg, "storefront-test", nil)
	require.NoError(t, err)
	require.NotNil(t, p.meterProvider)
	require.NotNil(t, p.metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// Nothing listens on the endpoint, so only construction is checked.
	_ = p.Shutdown(ctx)
}

func TestIsHistogram(t *testing.T) {
	assert.True(t, IsHistogram("storefront.http.latency_ms"))
	assert.True(t, IsHistogram("storefront.docgen.duration"))
	assert.False(t, IsHistogram("storefront.cart.add"))
}

func TestNewProvider_NoExporter(t *testing.T) {
	p, err := NewProvider(context.Background(), core.TelemetryConfig{Enabled: true, TracingEnabled: true}, "storefront-test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	assert.Nil(t, p.metrics, "metrics disabled when not configured")

	_, span := p.StartSpan(context.Background(), "noop")
	span.End()
}

func TestSamplingRate(t *testing.T) {
	assert.Equal(t, 1.0, samplingRate(core.TelemetryConfig{}))
	assert.Equal(t, 0.25, samplingRate(core.TelemetryConfig{TracingEnabled: true, SamplingRate: 0.25}))
	assert.Equal(t, 0.0, samplingRate(core.TelemetryConfig{Enabled: true}))
}
