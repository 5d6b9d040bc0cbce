package middleware

import (
	"net/http"
	"time"

	"scolaris/internal/platform/metrics"
)

// Latency records request counts and durations for every route.
func Latency(m *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			m.Observe(r.Method, rec.status, start)
		})
	}
}
