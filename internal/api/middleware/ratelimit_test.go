package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/riceadvisor/riceadvisor/internal/api/middleware"
	"github.com/riceadvisor/riceadvisor/internal/auth"
)

func send(handler http.Handler, remoteAddr, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test/path", http.NoBody)
	req.RemoteAddr = remoteAddr
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute}
	handler := middleware.RateLimitByIP(cfg)(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send(handler, "10.0.0.1:12345", "").Code, "request %d", i+1)
	}

	rec := send(handler, "10.0.0.1:12345", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimitByIP_DifferentIPsHaveSeparateLimits(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute}
	handler := middleware.RateLimitByIP(cfg)(okHandler())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, send(handler, "172.16.0.1:12345", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(handler, "172.16.0.1:12345", "").Code)
	assert.Equal(t, http.StatusOK, send(handler, "172.16.0.2:12345", "").Code)
}

func TestRateLimitByOperator_KeysOnTokenSubject(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 2, WindowLength: 30 * time.Second}
	handler := middleware.Auth(newJWTService(), auth.RoleOperator)(
		middleware.RateLimitByOperator(cfg)(okHandler()),
	)
	alice := mintToken(t, "alice", auth.RoleOperator)
	bob := mintToken(t, "bob", auth.RoleOperator)

	// Same operator from two addresses shares one budget.
	assert.Equal(t, http.StatusOK, send(handler, "192.168.1.1:1", alice).Code)
	assert.Equal(t, http.StatusOK, send(handler, "192.168.1.2:1", alice).Code)
	rec := send(handler, "192.168.1.3:1", alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send(handler, "192.168.1.1:1", bob).Code)
}

func TestRateLimitExceededResponse_Format(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute}
	handler := middleware.RequestID(middleware.RateLimitByIP(cfg)(okHandler()))

	assert.Equal(t, http.StatusOK, send(handler, "203.0.113.1:12345", "").Code)
	rec := send(handler, "203.0.113.1:12345", "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "too-many-requests")
	assert.Contains(t, body, "/test/path")
	assert.Contains(t, body, rec.Header().Get("X-Request-Id"))
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 30, middleware.ExpensiveRateLimit.RequestLimit)
	assert.Equal(t, 20, middleware.ChatRateLimit.RequestLimit)
	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	for _, cfg := range []middleware.RateLimitConfig{middleware.ExpensiveRateLimit, middleware.ChatRateLimit, middleware.StandardRateLimit} {
		assert.Equal(t, time.Minute, cfg.WindowLength)
	}
}
