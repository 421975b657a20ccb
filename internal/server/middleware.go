package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Mohsinsiddi/w3burn/internal/log"
	"github.com/Mohsinsiddi/w3burn/internal/metrics"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

// MetricsMiddleware logs each request and records its outcome and latency.
// It should be the outermost middleware so it sees the final status code.
func MetricsMiddleware(m metrics.RequestMetrics, logger *log.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			w.Header().Set(RequestIDHeader, requestID)
			logger.Debug("starting request", "method", r.Method, "path", r.URL.Path, "request_id", requestID)

			t := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			latency := time.Since(t)
			logger.Info("ending request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestID,
				"latency", latency,
				"status_code", status,
			)

			// Unrouted paths collapse into one label.
			endpoint := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				endpoint = rc.RoutePattern()
			}
			outcome, cause := "success", ""
			switch {
			case status >= 500:
				outcome, cause = "failure", http.StatusText(status)
			case status >= 400:
				outcome, cause = "failure_4xx", http.StatusText(status)
			}
			m.RequestCounter(endpoint, outcome, cause).Inc()
			m.RequestLatencies.WithLabelValues(endpoint).Observe(latency.Seconds())
		})
	}
}
