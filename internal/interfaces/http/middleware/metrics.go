package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
)

// RequestMetrics records request counts and latency labelled by the matched
// chi route pattern, so session IDs do not explode label cardinality.
func RequestMetrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			m.RecordHTTPRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}

//Personal.AI order the ending
