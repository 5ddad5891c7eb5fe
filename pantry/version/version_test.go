package version

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestHandler(t *testing.T) {
	r := chi.NewRouter()
	Mount(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info Info
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != Version || info.GoVersion != runtime.Version() || info.OS != runtime.GOOS {
		t.Errorf("info = %+v", info)
	}
}

func TestString(t *testing.T) {
	old := Version
	oldCommit, oldTime := Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = old, oldCommit, oldTime })

	Version, Commit, BuildTime = "1.2.3", "abc123", "2026-01-15T10:30:00Z"
	if got, want := String(), "1.2.3 (abc123, built 2026-01-15T10:30:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
