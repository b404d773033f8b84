package testutil

import (
	"net/http"
	"time"

	id "snowflake/pkg/domain"
	"snowflake/pkg/requestcontext"
)

// WithCaller adds a caller address to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the address is not valid, it will not be added to the context.
func WithCaller(req *http.Request, address string) *http.Request {
	if caller, err := id.ParseAddress(address); err == nil {
		return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
	}
	return req
}

// WithRequestTime pins the request time read by services.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
