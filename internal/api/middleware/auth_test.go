package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riceadvisor/riceadvisor/internal/api/middleware"
	"github.com/riceadvisor/riceadvisor/internal/auth"
)

const testSigningKey = "test-secret-key-for-testing-only"

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SigningKey: testSigningKey})
}

func mintToken(t *testing.T, subject, role string) string {
	t.Helper()
	token, _, err := newJWTService().GenerateToken(subject, role, time.Hour)
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingAuthorizationHeader(t *testing.T) {
	handler := middleware.Auth(newJWTService(), auth.RoleOperator)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
	assert.Equal(t, `Bearer realm="riceadvisor"`, rec.Header().Get("WWW-Authenticate"))
}

func TestAuth_RejectsBadHeaders(t *testing.T) {
	handler := middleware.Auth(newJWTService(), auth.RoleOperator)(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"unknown token", "bearer token123"},
		{"empty bearer", "Bearer "},
		{"just bearer", "Bearer"},
		{"malformed jwt", "Bearer invalid.jwt.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAuth_ValidToken(t *testing.T) {
	var operator string
	handler := middleware.Auth(newJWTService(), auth.RoleOperator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator = middleware.GetOperator(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token := mintToken(t, "field-ops", auth.RoleOperator)
	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			req.Header.Set("Authorization", prefix+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "field-ops", operator)
		})
	}
}

func TestAuth_RoleRequired(t *testing.T) {
	handler := middleware.Auth(newJWTService(), auth.RoleAdmin)(okHandler())

	tests := []struct {
		name string
		role string
		want int
	}{
		{"operator cannot administer", auth.RoleOperator, http.StatusForbidden},
		{"admin allowed", auth.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+mintToken(t, "ops", tt.role))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	minter := auth.NewJWTService(auth.JWTConfig{SigningKey: testSigningKey, Now: func() time.Time { return issued }})
	token, _, err := minter.GenerateToken("ops", auth.RoleOperator, time.Hour)
	require.NoError(t, err)

	handler := middleware.Auth(newJWTService(), auth.RoleOperator)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token has expired")
}

func TestGetOperator_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetOperator(req.Context()))
}
