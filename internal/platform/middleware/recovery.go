package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"scolaris/pkg/platform/httputil"
	"scolaris/pkg/requestcontext"

	dErrors "scolaris/pkg/domain-errors"
)

// Recovery converts handler panics into a 500 envelope instead of killing the
// connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "handler panic",
						"request_id", requestcontext.RequestID(r.Context()),
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
