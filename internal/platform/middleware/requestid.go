package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"scolaris/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation id and its arrival time.
// An id supplied by the caller is kept so the operator UI can trace its own
// calls; the arrival time is what audit events are stamped with.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
