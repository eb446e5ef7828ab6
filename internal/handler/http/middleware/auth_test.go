package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/jwt"
)

func newTestJWT(t *testing.T) jwt.Service {
	t.Helper()
	return jwt.NewJWTService("test-secret-key", "1h")
}

func protectedChain(svc jwt.Service, extra ...func(http.Handler) http.Handler) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	h = AuthRequired(svc.JWTAuth())(h)
	return jwtauth.Verifier(svc.JWTAuth())(h)
}

func TestAuthRequiredAcceptsAccessToken(t *testing.T) {
	svc := newTestJWT(t)
	token, _, err := svc.GenerateAccessToken("w1", "org1", jwt.RoleWorker)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protectedChain(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	svc := newTestJWT(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	protectedChain(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequiredRejectsStreamToken(t *testing.T) {
	svc := newTestJWT(t)
	// Stream tokens carry type=stream; they must not open the API surface.
	token, _, err := svc.GenerateStreamToken("w1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protectedChain(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireManagerAllowsManagerRole(t *testing.T) {
	svc := newTestJWT(t)
	token, _, err := svc.GenerateAccessToken("m1", "org1", jwt.RoleManager)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protectedChain(svc, RequireManager).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireManagerRejectsWorkerRole(t *testing.T) {
	svc := newTestJWT(t)
	token, _, err := svc.GenerateAccessToken("w1", "org1", jwt.RoleWorker)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protectedChain(svc, RequireManager).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
