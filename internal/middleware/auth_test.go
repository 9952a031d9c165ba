package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, scopes []string) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@lunia.mx",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scopes: scopes,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthValidToken(t *testing.T) {
	var gotOperator string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOperator = GetOperatorID(r.Context())
	})

	rec := httptest.NewRecorder()
	Auth(testSecret)(next).ServeHTTP(rec, authedRequest(signToken(t, testSecret, []string{"admin"})))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@lunia.mx", gotOperator)
}

func TestAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})

	rec := httptest.NewRecorder()
	Auth(testSecret)(next).ServeHTTP(rec, authedRequest(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	Auth(testSecret)(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	})

	rec := httptest.NewRecorder()
	Auth(testSecret)(next).ServeHTTP(rec, authedRequest(signToken(t, "other-secret", nil)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireScope(t *testing.T) {
	handler := Auth(testSecret)(RequireScope("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(signToken(t, testSecret, []string{"admin"})))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(signToken(t, testSecret, []string{"viewer"})))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
