// version/version.go
package version

import (
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/dalemusser/corpsite/httputil"
	"github.com/go-chi/chi/v5"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/dalemusser/corpsite/pantry/version.Version=1.0.0 \
//	                   -X github.com/dalemusser/corpsite/pantry/version.Commit=abc123 \
//	                   -X github.com/dalemusser/corpsite/pantry/version.BuildTime=2026-01-15T10:30:00Z"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the /version response.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// Get returns the build info. Commit and BuildTime fall back to the VCS
// stamp the Go toolchain embeds when ldflags did not set them.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "unknown":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.BuildTime == "unknown":
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// Handler responds with Get() as JSON.
func Handler() http.Handler {
	info := Get()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, info, nil)
	})
}

// Mount attaches GET /version to r.
func Mount(r chi.Router) {
	r.Method(http.MethodGet, "/version", Handler())
}

// String is a one-line description for startup logs,
// e.g. "1.2.3 (abc123, built 2026-01-15T10:30:00Z)".
func String() string {
	info := Get()
	if info.Version == "dev" && info.Commit == "unknown" {
		return "dev"
	}
	return info.Version + " (" + info.Commit + ", built " + info.BuildTime + ")"
}
