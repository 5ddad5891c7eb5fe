// session/middleware.go
package session

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type contextKey struct{}

// Middleware loads the session into the request context and saves it
// before the response header goes out if a handler changed it.
func Middleware(m *Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := m.Get(r)
			if err != nil {
				logger.Warn("session load failed; starting a new one", zap.Error(err))
				if s, err = m.New(); err != nil {
					logger.Error("session create failed", zap.Error(err))
					next.ServeHTTP(w, r)
					return
				}
			}

			r = r.WithContext(context.WithValue(r.Context(), contextKey{}, s))
			sw := &sessionWriter{ResponseWriter: w, request: r, session: s, manager: m, logger: logger}

			next.ServeHTTP(sw, r)
			sw.save()
		})
	}
}

// FromContext returns the request's session, or nil outside Middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// sessionWriter saves a modified session right before the first header or
// body write, while Set-Cookie can still be added.
type sessionWriter struct {
	http.ResponseWriter
	request *http.Request
	session *Session
	manager *Manager
	logger  *zap.Logger
	written bool
}

func (sw *sessionWriter) save() {
	if sw.written {
		return
	}
	sw.written = true
	if !sw.session.Modified() {
		return
	}
	if err := sw.manager.Save(sw.ResponseWriter, sw.request, sw.session); err != nil {
		sw.logger.Error("session save failed", zap.Error(err))
	}
}

func (sw *sessionWriter) WriteHeader(code int) {
	sw.save()
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.save()
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *sessionWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }
