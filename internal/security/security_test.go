package security_test

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/security"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(status) })
}

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	var captured string
	handler := security.BodyLimit{Max: 10}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/carts/s1/drinks", strings.NewReader("hello")))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hello", captured)
}

func TestBodyLimitRejectsOversized(t *testing.T) {
	handler := security.BodyLimit{Max: 5}.Middleware(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/payload", strings.NewReader("excessive")))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")

	req := httptest.NewRequest(http.MethodPost, "/payload", strings.NewReader("content"))
	req.ContentLength = 100
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	handler := security.Headers{EnableHSTS: true, HSTSIncludeSubdomains: true}.Middleware(okHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "https://pizza.example/api/v1/orders", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddlewareSkipsHSTSWithoutTLS(t *testing.T) {
	handler := security.Headers{EnableHSTS: true}.Middleware(okHandler(http.StatusOK))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://pizza.example", nil))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestCSRF(t *testing.T) {
	handler := security.CSRF{Header: "X-CSRF-Token", AccessCookie: "access_token"}.Middleware(okHandler(http.StatusAccepted))

	send := func(mutate func(*http.Request)) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/s1/checkout", nil)
		mutate(req)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("cookie without token", func(t *testing.T) {
		code := send(func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: "jwt"})
		})
		require.Equal(t, http.StatusForbidden, code)
	})

	t.Run("cookie with matching token", func(t *testing.T) {
		code := send(func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: "jwt"})
			r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "secure-token"})
			r.Header.Set("X-CSRF-Token", "secure-token")
		})
		require.Equal(t, http.StatusAccepted, code)
	})

	t.Run("cookie with mismatched token", func(t *testing.T) {
		code := send(func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: "jwt"})
			r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "secure-token"})
			r.Header.Set("X-CSRF-Token", "other-token")
		})
		require.Equal(t, http.StatusForbidden, code)
	})

	t.Run("bearer", func(t *testing.T) {
		code := send(func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc.def") })
		require.Equal(t, http.StatusAccepted, code)
	})

	t.Run("anonymous", func(t *testing.T) {
		require.Equal(t, http.StatusAccepted, send(func(*http.Request) {}))
	})

	t.Run("safe method", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
		require.Equal(t, http.StatusAccepted, rr.Code)
	})
}
