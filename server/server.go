// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dalemusser/corpsite/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme/autocert"
)

// certWarmTimeout bounds how long startup waits for the first ACME cert.
const certWarmTimeout = 60 * time.Second

// errKeyPermissions marks a TLS key readable by group or others.
var errKeyPermissions = errors.New("TLS key file has overly permissive permissions")

// WithShutdownSignals returns a context canceled on SIGINT or SIGTERM.
// The cancel function also stops signal delivery.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// ListenAndServeWithContext serves handler over HTTP, or over HTTPS with
// manual certificates or Let's Encrypt (http-01), and blocks until ctx is
// canceled or a server fails. In HTTPS modes a second server on :80
// redirects to HTTPS (and answers ACME challenges).
func ListenAndServeWithContext(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("ListenAndServeWithContext: cfg is nil")
	}
	if handler == nil {
		return errors.New("ListenAndServeWithContext: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := newServer(cfg, handler, logger)

	if !cfg.HTTP.UseHTTPS {
		addr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", addr, err)
		}
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		return serve(ctx, cfg, logger, srv, ln, nil)
	}

	redirect := httpRedirectHandler(cfg.HTTP.HTTPSPort)
	var tlsCfg *tls.Config
	var aux *http.Server

	if cfg.TLS.UseLetsEncrypt {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
			Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
			Email:      cfg.TLS.LetsEncryptEmail,
		}
		// :80 must be up before the first certificate request.
		aux = newServer(cfg, m.HTTPHandler(redirect), logger)
		aux.Addr = ":80"
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, GetCertificate: m.GetCertificate}

		warm := func() {
			if err := waitForCert(ctx, m, cfg.TLS.Domain, certWarmTimeout); err != nil {
				logger.Warn("autocert pre-warm failed; first HTTPS hits may see TLS errors", zap.Error(err))
			}
		}
		return serveTLS(ctx, cfg, logger, srv, aux, tlsCfg, warm)
	}

	if err := validateTLSFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
		if !errors.Is(err, errKeyPermissions) || cfg.Env == "prod" {
			return err
		}
		logger.Warn("TLS key file security warning (would block in prod)", zap.Error(err))
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return fmt.Errorf("load TLS cert/key: %w", err)
	}
	tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}
	aux = newServer(cfg, redirect, logger)
	aux.Addr = ":80"
	return serveTLS(ctx, cfg, logger, srv, aux, tlsCfg, nil)
}

func newServer(cfg *config.Config, h http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}
	return srv
}

// serveTLS starts aux on :80, runs warm (if any), then serves srv on the
// HTTPS port.
func serveTLS(ctx context.Context, cfg *config.Config, logger *zap.Logger, srv, aux *http.Server, tlsCfg *tls.Config, warm func()) error {
	auxErr := make(chan error, 1)
	go func() { auxErr <- ignoreClosed(aux.ListenAndServe()) }()
	logger.Info("HTTP → HTTPS redirect server listening", zap.String("addr", aux.Addr))

	if warm != nil {
		warm()
	}

	addr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	baseLn, err := net.Listen("tcp", addr)
	if err != nil {
		_ = aux.Close()
		return fmt.Errorf("listen https %s: %w", addr, err)
	}
	srv.TLSConfig = tlsCfg
	logger.Info("HTTPS server listening",
		zap.String("addr", baseLn.Addr().String()),
		zap.Bool("lets_encrypt", cfg.TLS.UseLetsEncrypt),
		zap.String("domain", cfg.TLS.Domain))

	return serve(ctx, cfg, logger, srv, tls.NewListener(baseLn, tlsCfg), &auxServer{srv: aux, errc: auxErr})
}

type auxServer struct {
	srv  *http.Server
	errc chan error
}

// serve runs srv on ln until ctx is done (graceful shutdown within
// ShutdownTimeout) or either server fails.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, srv *http.Server, ln net.Listener, aux *auxServer) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- ignoreClosed(srv.Serve(ln)) }()

	// A nil channel blocks forever, which disables the aux case in HTTP mode.
	var auxErr chan error
	if aux != nil {
		auxErr = aux.errc
	}
	stopAux := func(c context.Context) {
		if aux != nil {
			_ = aux.srv.Shutdown(c)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down server…")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			stopAux(shutdownCtx)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = ln.Close()
				return fmt.Errorf("server shutdown: %w", err)
			}
			logger.Info("server stopped gracefully")
			return nil

		case err := <-serveErr:
			stopAux(context.Background())
			_ = ln.Close()
			if err != nil {
				return fmt.Errorf("primary server error: %w", err)
			}
			return nil

		case err := <-auxErr:
			if err != nil {
				_ = srv.Close()
				_ = ln.Close()
				return fmt.Errorf("redirect server error: %w", err)
			}
			auxErr = nil
		}
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// httpRedirectHandler sends every request to the HTTPS origin of the same
// host. The Host header is validated to avoid header injection and open
// redirects.
func httpRedirectHandler(httpsPort int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isValidHost(r.Host) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		reqURI := r.URL.RequestURI()
		if !isValidRequestURI(reqURI) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
			if strings.Contains(host, ":") {
				host = "[" + host + "]"
			}
		}
		if httpsPort != 0 && httpsPort != 443 {
			host += ":" + strconv.Itoa(httpsPort)
		}
		http.Redirect(w, r, "https://"+host+reqURI, http.StatusMovedPermanently)
	})
}

func isValidRequestURI(uri string) bool {
	for _, c := range uri {
		if (c < 0x20 && c != '\t') || c == 0x7f {
			return false
		}
	}
	return true
}

// isValidHost accepts host, host:port and bracketed IPv6 forms and rejects
// anything carrying control characters, schemes or paths.
func isValidHost(host string) bool {
	if host == "" || strings.Contains(host, "://") || strings.ContainsAny(host, "/\\@") {
		return false
	}

	hostPart := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		hostPart = h
		if port != "" {
			n, err := strconv.Atoi(port)
			if err != nil || n <= 0 || n > 65535 {
				return false
			}
		}
		if strings.Contains(hostPart, ":") && net.ParseIP(stripZone(hostPart)) == nil {
			return false
		}
	} else if strings.HasPrefix(host, "[") {
		if !strings.HasSuffix(host, "]") || len(host) < 3 {
			return false
		}
		hostPart = host[1 : len(host)-1]
		if net.ParseIP(stripZone(hostPart)) == nil {
			return false
		}
	}

	if hostPart == "" {
		return false
	}
	for _, c := range hostPart {
		if c <= 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}

func stripZone(ip string) string {
	if i := strings.IndexByte(ip, '%'); i != -1 {
		return ip[:i]
	}
	return ip
}

// validateTLSFiles checks that the cert and key exist as regular files. A key
// readable by group or others yields an error wrapping errKeyPermissions.
func validateTLSFiles(certFile, keyFile string) error {
	if certFile == "" || keyFile == "" {
		return errors.New("manual TLS selected but cert_file / key_file not provided")
	}
	for _, f := range []struct{ kind, path string }{{"certificate", certFile}, {"key", keyFile}} {
		fi, err := os.Stat(f.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("TLS %s file does not exist: %s", f.kind, f.path)
		case err != nil:
			return fmt.Errorf("cannot access TLS %s file %s: %w", f.kind, f.path, err)
		case fi.IsDir():
			return fmt.Errorf("TLS %s path is a directory, not a file: %s", f.kind, f.path)
		}
	}

	// Unix permission bits carry no meaning on Windows.
	if runtime.GOOS != "windows" {
		fi, _ := os.Stat(keyFile)
		if perm := fi.Mode().Perm(); perm&0o077 != 0 {
			return fmt.Errorf("%w: %s is %o (recommended 0600)", errKeyPermissions, keyFile, perm)
		}
	}
	return nil
}

// waitForCert blocks until autocert has a certificate for host, ctx is done,
// or timeout passes.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for cert for %q: %w (last error: %v)", host, ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
