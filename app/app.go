// app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/corpsite/config"
	"github.com/dalemusser/corpsite/logging"
	"github.com/dalemusser/corpsite/metrics"
	"github.com/dalemusser/corpsite/pantry/version"
	"github.com/dalemusser/corpsite/server"
	"go.uber.org/zap"
)

// Hooks are the integration points an application provides to Run. D is the
// bundle of backends (session store, clients) built at startup.
type Hooks[D any] struct {
	// Name is used only for logging/diagnostics.
	Name string

	// LoadConfig builds the process configuration once.
	LoadConfig func(logger *zap.Logger) (*config.Config, error)

	// ConnectBackends opens stores and clients. It may be nil.
	ConnectBackends func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (D, error)

	// BuildHandler constructs the final http.Handler: router, middleware
	// and routes.
	BuildHandler func(cfg *config.Config, deps D, logger *zap.Logger) (http.Handler, error)

	// Close releases what ConnectBackends opened. It may be nil.
	Close func(deps D) error
}

// Run executes the startup sequence:
//
//  1. Bootstrap logger
//  2. Load config (Hooks.LoadConfig)
//  3. Build final logger from config
//  4. Register metrics
//  5. Connect backends (Hooks.ConnectBackends)
//  6. Wire shutdown signals to a context
//  7. Build the HTTP handler (Hooks.BuildHandler)
//  8. Serve until shutdown, then close backends
//
// Startup failures are logged and returned; the caller decides the exit code.
func Run[D any](ctx context.Context, hooks Hooks[D]) (err error) {
	if hooks.LoadConfig == nil || hooks.BuildHandler == nil {
		return errors.New("app: LoadConfig and BuildHandler hooks are required")
	}

	bootstrap := logging.BootstrapLogger()
	defer func() { _ = bootstrap.Sync() }()
	bootstrap.Info("bootstrap logger initialized", zap.String("app", hooks.Name))

	cfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}
	bootstrap.Info("config loaded",
		zap.String("env", cfg.Env),
		zap.String("log_level", cfg.LogLevel),
	)

	logger, err := logging.BuildLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		bootstrap.Error("logger build failed", zap.Error(err))
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("logger initialized",
		zap.String("app", hooks.Name),
		zap.String("version", version.String()))
	logger.Debug("effective config", zap.String("config", cfg.Dump()))

	if cfg.EnableMetrics {
		metrics.RegisterDefault(logger)
	}

	var deps D
	if hooks.ConnectBackends != nil {
		deps, err = hooks.ConnectBackends(ctx, cfg, logger)
		if err != nil {
			logger.Error("backend connect failed", zap.Error(err))
			return fmt.Errorf("connect backends: %w", err)
		}
	}
	if hooks.Close != nil {
		defer func() {
			if cerr := hooks.Close(deps); cerr != nil {
				logger.Warn("backend close failed", zap.Error(cerr))
			}
		}()
	}

	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	handler, err := hooks.BuildHandler(cfg, deps, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return fmt.Errorf("build handler: %w", err)
	}

	if err := server.ListenAndServeWithContext(ctx, cfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
