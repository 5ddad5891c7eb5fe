package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/corpsite/config"
)

func TestHTTPRedirectHandler(t *testing.T) {
	tests := []struct {
		name      string
		port      int
		host      string
		target    string
		wantCode  int
		wantLocal string
	}{
		{"default port", 443, "example.com", "/contact?x=1", http.StatusMovedPermanently, "https://example.com/contact?x=1"},
		{"strips http port", 443, "example.com:80", "/", http.StatusMovedPermanently, "https://example.com/"},
		{"custom https port", 8443, "example.com:8080", "/careers", http.StatusMovedPermanently, "https://example.com:8443/careers"},
		{"ipv6", 443, "[::1]:80", "/", http.StatusMovedPermanently, "https://[::1]/"},
		{"bad host", 443, "evil.com/path", "/", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			httpRedirectHandler(tt.port).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantLocal != "" && rec.Header().Get("Location") != tt.wantLocal {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLocal)
			}
		})
	}
}

func TestIsValidHost(t *testing.T) {
	valid := []string{"example.com", "example.com:8080", "localhost", "127.0.0.1:5000", "[::1]:443", "[::1]", "::1", "[fe80::1%25eth0]:80"}
	invalid := []string{"", "example.com:0", "example.com:99999", "exa mple.com", "evil.com\r\nX: y", "http://evil.com", "/path", "user@evil.com", "[]", "[zz::1]:80"}

	for _, h := range valid {
		if !isValidHost(h) {
			t.Errorf("isValidHost(%q) = false, want true", h)
		}
	}
	for _, h := range invalid {
		if isValidHost(h) {
			t.Errorf("isValidHost(%q) = true, want false", h)
		}
	}
}

func TestValidateTLSFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(cert, []byte("cert"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(key, []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := validateTLSFiles(cert, key); err != nil {
		t.Errorf("valid files: %v", err)
	}
	if err := validateTLSFiles("", key); err == nil {
		t.Error("expected error for empty cert path")
	}
	if err := validateTLSFiles(filepath.Join(dir, "missing.pem"), key); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("missing cert err = %v", err)
	}
	if err := validateTLSFiles(cert, dir); err == nil || !strings.Contains(err.Error(), "directory") {
		t.Errorf("dir key err = %v", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(key, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := validateTLSFiles(cert, key); !errors.Is(err, errKeyPermissions) {
			t.Errorf("world-readable key err = %v, want errKeyPermissions", err)
		}
	}
}

func TestListenAndServe_GracefulShutdown(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTP.HTTPPort = 0 // any free port
	cfg.HTTP.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServeWithContext(ctx, cfg, http.NotFoundHandler(), nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServeWithContext: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestListenAndServe_RejectsNil(t *testing.T) {
	if err := ListenAndServeWithContext(context.Background(), nil, http.NotFoundHandler(), nil); err == nil {
		t.Error("expected error for nil cfg")
	}
	if err := ListenAndServeWithContext(context.Background(), &config.Config{}, nil, nil); err == nil {
		t.Error("expected error for nil handler")
	}
}
