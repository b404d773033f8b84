package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "snowflake/pkg/domain"
	"snowflake/pkg/requestcontext"
)

func newTestMiddleware(opts ...MiddlewareOption) *Middleware {
	l, _ := newTestLimiter(NewInMemoryStore())
	return NewMiddleware(l, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func serve(h http.Handler, caller id.Address, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/tokens", nil)
	req.RemoteAddr = ip + ":4711"
	if caller != "" {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), caller))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitWritesPerCaller(t *testing.T) {
	mw := newTestMiddleware()
	h := mw.RateLimit(ClassWrite)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	alice := id.Address("0x7e5f4552091a69125d5dfcb7b8c2659029395bdf")
	bob := id.Address("0x2b5ad5c4795c026514f8317c7a215e218dccd6cf")

	assert.Equal(t, http.StatusNoContent, serve(h, alice, "10.0.0.1").Code)
	rec := serve(h, alice, "10.0.0.2")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(h, alice, "10.0.0.3")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	assert.Equal(t, http.StatusNoContent, serve(h, bob, "10.0.0.3").Code, "limits are per caller")
}

func TestRateLimitAnonymousKeyedByIP(t *testing.T) {
	mw := newTestMiddleware()
	h := mw.RateLimit(ClassWrite)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve(h, "", "10.0.0.1")
	serve(h, "", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, serve(h, "", "10.0.0.9").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	mw := newTestMiddleware(WithDisabled(true))
	h := mw.RateLimit(ClassWrite)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for range 5 {
		assert.Equal(t, http.StatusOK, serve(h, "", "10.0.0.1").Code)
	}
}
