// health/health.go
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dalemusser/corpsite/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultCheckTimeout bounds each probe.
const DefaultCheckTimeout = 2 * time.Second

// Check is a single probe. It returns nil when the dependency is healthy.
type Check func(ctx context.Context) error

// Response is the JSON body of /health.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler runs checks on every request, each bounded by
// DefaultCheckTimeout. With no checks it is a plain liveness probe:
//
//	{ "status": "ok" }
//
// If any check fails it answers 503:
//
//	{ "status": "error", "checks": { "session_store": "error: ...", ... } }
func Handler(checks map[string]Check, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(names) == 0 {
			httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"}, logger)
			return
		}

		resp := Response{Status: "ok", Checks: make(map[string]string, len(names))}
		for _, name := range names {
			if err := run(r.Context(), checks[name]); err != nil {
				resp.Status = "error"
				resp.Checks[name] = "error: " + err.Error()
				logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp, logger)
	})
}

func run(ctx context.Context, c Check) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultCheckTimeout)
	defer cancel()
	return c(ctx)
}

// Mount attaches GET /health to r.
func Mount(r chi.Router, checks map[string]Check, logger *zap.Logger) {
	r.Method(http.MethodGet, "/health", Handler(checks, logger))
}
