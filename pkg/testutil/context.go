package testutil

import (
	"net/http"

	"scolaris/pkg/requestcontext"
)

// WithActor marks the request as authenticated for the given operator,
// simulating what the auth middleware does.
func WithActor(req *http.Request, actorID string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}

// WithRequestID attaches a correlation id, simulating the request-id
// middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
