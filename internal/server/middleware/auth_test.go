package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authProbe(t *testing.T, apiKey string, decorate func(*http.Request)) int {
	t.Helper()

	var reached bool
	h := Auth(apiKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		assert.True(t, reached)
	} else {
		assert.False(t, reached)
	}
	return rec.Code
}

func TestAuthDisabledWhenNoKey(t *testing.T) {
	assert.Equal(t, http.StatusOK, authProbe(t, "", nil))
}

func TestAuthMissingToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, authProbe(t, "secret", nil))
}

func TestAuthBearerToken(t *testing.T) {
	code := authProbe(t, "secret", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer secret")
	})
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthAPIKeyHeader(t *testing.T) {
	code := authProbe(t, "secret", func(r *http.Request) {
		r.Header.Set("X-API-Key", "secret")
	})
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthWrongToken(t *testing.T) {
	code := authProbe(t, "secret", func(r *http.Request) {
		r.Header.Set("X-API-Key", "guess")
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}
