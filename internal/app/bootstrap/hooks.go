package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dalemusser/corpsite/app"
	"github.com/dalemusser/corpsite/auth/apikey"
	"github.com/dalemusser/corpsite/config"
	"github.com/dalemusser/corpsite/contact"
	"github.com/dalemusser/corpsite/mailer"
	"github.com/dalemusser/corpsite/metrics"
	"github.com/dalemusser/corpsite/middleware"
	"github.com/dalemusser/corpsite/pantry/fileserver"
	"github.com/dalemusser/corpsite/pantry/health"
	"github.com/dalemusser/corpsite/pantry/pprof"
	"github.com/dalemusser/corpsite/pantry/session"
	"github.com/dalemusser/corpsite/pantry/version"
	"github.com/dalemusser/corpsite/router"
	"github.com/dalemusser/corpsite/site"
	"github.com/dalemusser/corpsite/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const redisConnectTimeout = 5 * time.Second

// Backends holds what ConnectBackends opened.
type Backends struct {
	Sessions *session.Manager
}

// LoadConfig reads the process configuration from flags, env and files.
func LoadConfig(logger *zap.Logger) (*config.Config, error) {
	return config.Load(logger, os.Args[1:])
}

// ConnectBackends opens the session store selected by session_store.
func ConnectBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Backends, error) {
	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		rs, err := session.ConnectRedis(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB, redisConnectTimeout)
		if err != nil {
			return Backends{}, err
		}
		logger.Info("session store connected", zap.String("store", "redis"), zap.String("addr", cfg.Session.RedisAddr))
		store = rs
	default:
		store = session.NewMemoryStore(10 * time.Minute)
		logger.Info("session store ready", zap.String("store", "memory"))
	}

	mgr, err := session.NewManager(store, session.Options{
		SecretKey: cfg.Session.SecretKey,
		MaxAge:    cfg.Session.MaxAge,
		Secure:    cfg.HTTP.UseHTTPS,
	})
	if err != nil {
		_ = store.Close()
		return Backends{}, err
	}

	return Backends{Sessions: mgr}, nil
}

// BuildHandler assembles templates, forms, router and routes.
func BuildHandler(cfg *config.Config, b Backends, logger *zap.Logger) (http.Handler, error) {
	notifier := mailer.NewNotifier(cfg.Mail, logger)
	if !notifier.Configured() {
		logger.Warn("mail is not configured; contact form notifications will fail",
			zap.Strings("missing", cfg.Mail.Missing()))
	}
	return buildHandler(cfg, b, logger, notifier)
}

func buildHandler(cfg *config.Config, b Backends, logger *zap.Logger, notifier contact.Notifier) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := templates.New(logger)
	shared, pages := site.TemplateSets()
	if err := engine.Boot(shared, pages); err != nil {
		return nil, fmt.Errorf("boot templates: %w", err)
	}
	renderer := templates.NewRenderer(engine, logger, cfg.SiteName)

	r := router.New(cfg, logger, renderer)

	// Operational endpoints stay up during maintenance.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ReadOnlyCORS(cfg.CORSOrigins()))
		health.Mount(r, map[string]health.Check{"session_store": b.Sessions.Store().Ping}, logger)
		version.Mount(r)
	})
	r.Group(func(r chi.Router) {
		if cfg.OpsAPIKey != "" {
			r.Use(apikey.Require(cfg.OpsAPIKey, apikey.Options{
				CookieName: "corpsite_ops",
				Secure:     cfg.HTTP.UseHTTPS,
			}, logger))
		}
		if cfg.EnableMetrics {
			r.Method(http.MethodGet, "/metrics", metrics.Handler())
		}
		if cfg.EnablePprof {
			if cfg.Env == "prod" && cfg.OpsAPIKey == "" {
				logger.Warn("enable_pprof ignored in prod without ops_api_key")
			} else {
				pprof.Mount(r)
				logger.Info("pprof mounted", zap.String("path", pprof.Prefix))
			}
		}
	})
	r.Handle("/static/*", fileserver.Handler("/static", site.StaticFS(), fileserver.Options{
		CacheControl: "public, max-age=3600",
		Forbidden:    statusPage(renderer, http.StatusForbidden),
		NotFound:     statusPage(renderer, http.StatusNotFound),
	}))

	forms := contact.NewHandler(notifier, logger, cfg.SiteName)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Maintenance(cfg.MaintenanceMode, renderer))
		r.Use(session.Middleware(b.Sessions, logger))
		site.NewHandler(renderer, forms, logger).Routes(r)
	})

	return r, nil
}

func statusPage(pages *templates.Renderer, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Error(w, r, status)
	})
}

// Close shuts the session store down.
func Close(b Backends) error {
	if b.Sessions == nil {
		return nil
	}
	return b.Sessions.Close()
}

// Hooks wires corpsite into app.Run.
var Hooks = app.Hooks[Backends]{
	Name:            "corpsite",
	LoadConfig:      LoadConfig,
	ConnectBackends: ConnectBackends,
	BuildHandler:    BuildHandler,
	Close:           Close,
}
