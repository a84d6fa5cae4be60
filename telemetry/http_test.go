package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestProvider(t *testing.T) (*Provider, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	p := NewProviderWithExporter(exp, nil)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p, exp
}

func TestTracingMiddleware(t *testing.T) {
	_, exp := newTestProvider(t)

	h := TracingMiddleware("storefront", "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, path := range []string{"/health", "/api/cart"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	spans := exp.GetSpans()
	require.Len(t, spans, 1, "health checks are not traced")
	assert.Equal(t, "HTTP GET /api/cart", spans[0].Name)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
}

func TestTracingMiddleware_ServerErrors(t *testing.T) {
	_, exp := newTestProvider(t)

	h := TracingMiddleware("storefront")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products/99":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))

	for _, path := range []string{"/api/products/99", "/api/assistant"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status.Code, "client errors leave server spans unset")
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestTracedHTTPClient_PropagatesContext(t *testing.T) {
	p, _ := newTestProvider(t)

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
	}))
	defer srv.Close()

	ctx, span := p.StartSpan(context.Background(), "assistant.send")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := NewTracedHTTPClient(time.Second).Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	span.End()

	sc := trace.SpanContextFromContext(ctx)
	require.True(t, sc.IsValid())
	assert.Contains(t, traceparent, sc.TraceID().String())
}

func TestNewTracedHTTPClient_Timeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, NewTracedHTTPClient(5*time.Second).Timeout)
	assert.Zero(t, NewTracedHTTPClient(0).Timeout)
}
