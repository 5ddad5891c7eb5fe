package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// ErrorRenderer writes a rendered error page for the given status.
// templates.Renderer implements it.
type ErrorRenderer interface {
	Error(w http.ResponseWriter, r *http.Request, status int)
}

// NotFoundHandler logs a 404 and renders the not-found page.
// It is designed to be passed directly to chi.Router.NotFound(..).
func NotFoundHandler(logger *zap.Logger, pages ErrorRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logger != nil {
			logger.Info("not_found",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_ip", r.RemoteAddr),
			)
		}
		pages.Error(w, r, http.StatusNotFound)
	}
}

// MethodNotAllowedHandler logs a 405 and renders the not-found page with a
// 405 status. It is designed for chi.Router.MethodNotAllowed(..).
func MethodNotAllowedHandler(logger *zap.Logger, pages ErrorRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logger != nil {
			logger.Info("method_not_allowed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_ip", r.RemoteAddr),
			)
		}
		pages.Error(w, r, http.StatusMethodNotAllowed)
	}
}
