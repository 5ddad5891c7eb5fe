package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadOnlyCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"disabled", nil, "https://status.example.com", ""},
		{"allowed", []string{"https://status.example.com"}, "https://status.example.com", "https://status.example.com"},
		{"other origin", []string{"https://status.example.com"}, "https://evil.example.com", ""},
		{"wildcard", []string{"*"}, "https://any.example.com", "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			ReadOnlyCORS(tt.origins)(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.want)
			}
			if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Error("credentials must not be allowed")
			}
		})
	}
}
