package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders_Defaults(t *testing.T) {
	handler := SecureDefaults()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	tests := []struct {
		header string
		want   string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "SAMEORIGIN"},
		{"X-XSS-Protection", "1; mode=block"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
	}

	for _, tt := range tests {
		if got := rec.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}

	if hsts := rec.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("HSTS should not be set for HTTP requests, got %q", hsts)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); csp != "" {
		t.Errorf("CSP should be unset by default, got %q", csp)
	}
}

func TestSecurityHeaders_HSTSOnlyForTLS(t *testing.T) {
	handler := SecureDefaults()(okHandler())

	t.Run("HTTP", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
		if hsts := rec.Header().Get("Strict-Transport-Security"); hsts != "" {
			t.Errorf("HSTS should not be set for HTTP, got %q", hsts)
		}
	})

	t.Run("HTTPS", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
		req.TLS = &tls.ConnectionState{}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		want := "max-age=31536000; includeSubDomains"
		if hsts := rec.Header().Get("Strict-Transport-Security"); hsts != want {
			t.Errorf("HSTS = %q, want %q", hsts, want)
		}
	})
}

func TestSecurityHeaders_DisabledHeaders(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersOptions{})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	for _, header := range []string{
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Referrer-Policy",
		"X-XSS-Protection",
		"Strict-Transport-Security",
	} {
		if got := rec.Header().Get(header); got != "" {
			t.Errorf("%s should not be set when disabled, got %q", header, got)
		}
	}
}

func TestSecurityHeaders_SurviveErrorResponses(t *testing.T) {
	handler := SecureDefaults()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q on error response", got)
	}
}

func TestSecurityHeaders_PassesThrough(t *testing.T) {
	handler := SecureDefaults()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom-Header", "test")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if got := rec.Header().Get("X-Custom-Header"); got != "test" {
		t.Errorf("X-Custom-Header = %q, want %q", got, "test")
	}
	if rec.Body.String() != "hello" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "hello")
	}
}
