// router/router.go
package router

import (
	"net/http"

	"github.com/dalemusser/corpsite/config"
	"github.com/dalemusser/corpsite/logging"
	"github.com/dalemusser/corpsite/metrics"
	"github.com/dalemusser/corpsite/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New creates a chi.Router pre-wired with the standard middleware stack:
// - RequestID, RealIP
// - security headers (set before anything else can write)
// - Recoverer (panic → rendered 500 page)
// - body size limit (MaxRequestBodyBytes)
// - metrics HTTP middleware
// - request logging
// - compression (EnableCompression)
// - NotFound / MethodNotAllowed rendered through pages
// Routes, health, metrics and static files are mounted by the caller.
func New(cfg *config.Config, logger *zap.Logger, pages middleware.ErrorRenderer) chi.Router {
	r := chi.NewRouter()

	// Request context & safety
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.SecureDefaults())
	r.Use(logging.Recoverer(logger, func(w http.ResponseWriter, req *http.Request) {
		pages.Error(w, req, http.StatusInternalServerError)
	}))

	r.Use(middleware.LimitBodySize(cfg.MaxRequestBodyBytes))
	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(cfg.EnableCompression))

	r.NotFound(middleware.NotFoundHandler(logger, pages))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger, pages))

	return r
}
