package core

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSMiddleware adds CORS headers for allowed origins and answers preflight
// requests with 204. The storefront browser client is usually served from a
// different origin than the API, so it sends X-Client-ID cross-origin.
//
// Origin patterns:
//   - "*" matches any origin
//   - "https://*.example.com" matches any subdomain, not the apex
//   - "http://localhost:*" matches any port
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config == nil || !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ApplyCORS(w, r, config)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ApplyCORS sets CORS headers on w when the request origin is allowed
func ApplyCORS(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	if config == nil || !config.Enabled {
		return
	}

	origin := r.Header.Get("Origin")
	if !isOriginAllowed(origin, config.AllowedOrigins) {
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
	}
	if len(config.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
	}
	if len(config.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
	}
	if config.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
	}
}

// isOriginAllowed reports whether origin matches one of the allowed patterns.
// An empty origin is a same-origin request and never needs CORS headers.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*", allowed == origin:
			return true

		case strings.Contains(allowed, "*."):
			idx := strings.Index(allowed, "*.")
			prefix, suffix := allowed[:idx], allowed[idx+1:] // suffix keeps the leading dot
			if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) &&
				len(origin) > len(prefix)+len(suffix) {
				return true
			}

		case strings.HasSuffix(allowed, ":*"):
			base := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(origin, base) && !strings.Contains(origin[len(base):], "/") {
				return true
			}
		}
	}

	return false
}

// DevelopmentCORSConfig allows any origin. Never use it in production.
func DevelopmentCORSConfig() *CORSConfig {
	return &CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Client-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}
