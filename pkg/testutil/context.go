package testutil

import (
	"net/http"

	"istr/pkg/requestcontext"
)

// WithSubject marks the request as authenticated by subject, as the auth
// middleware would.
func WithSubject(req *http.Request, subject string) *http.Request {
	return req.WithContext(requestcontext.WithSubject(req.Context(), subject))
}

// WithRequestID attaches a request id to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
