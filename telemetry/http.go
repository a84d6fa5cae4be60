package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TracingMiddleware wraps a handler with otelhttp. Requests to excluded paths
// are not traced.
func TracingMiddleware(serviceName string, excludedPaths ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(excludedPaths))
	for _, p := range excludedPaths {
		skip[p] = true
	}

	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	}
	if len(skip) > 0 {
		opts = append(opts, otelhttp.WithFilter(func(r *http.Request) bool {
			return !skip[r.URL.Path]
		}))
	}

	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName, opts...)
	}
}

// NewTracedHTTPClient returns a client that propagates trace context on
// outgoing requests. A zero timeout means none, which streaming calls need.
func NewTracedHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}
