// Package apikey guards operational endpoints with a static bearer key.
package apikey

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/corpsite/httputil"
	"go.uber.org/zap"
)

// Options control how Require behaves.
type Options struct {
	// Realm goes into WWW-Authenticate. Defaults to "corpsite-ops".
	Realm string

	// CookieName, if set, lets a browser that authenticated once via the
	// api_key query param keep using the pprof pages without repeating it.
	CookieName string

	// Secure marks the remembered cookie Secure.
	Secure bool
}

// Require returns middleware that admits requests carrying expected.
// Lookup order: Authorization: Bearer, X-API-Key, api_key query, then
// the cookie when Options.CookieName is set.
func Require(expected string, opts Options, logger *zap.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	expected = strings.TrimSpace(expected)
	realm := strings.TrimSpace(opts.Realm)
	if realm == "" {
		realm = "corpsite-ops"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				logger.Error("apikey.Require used with an empty key")
				httputil.JSONError(w, http.StatusInternalServerError, "server_misconfigured", "")
				return
			}

			key, fromCookie := keyFromRequest(r, opts.CookieName)
			if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				logger.Warn("ops key rejected",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_ip", r.RemoteAddr),
					zap.Bool("key_present", key != ""))
				w.Header().Set("WWW-Authenticate", `Bearer realm="`+realm+`"`)
				httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "a valid ops API key is required")
				return
			}

			if opts.CookieName != "" && !fromCookie {
				http.SetCookie(w, &http.Cookie{
					Name:     opts.CookieName,
					Value:    expected,
					Path:     "/",
					Secure:   opts.Secure,
					HttpOnly: true,
					SameSite: http.SameSiteStrictMode,
				})
			}
			next.ServeHTTP(w, r)
		})
	}
}

func keyFromRequest(r *http.Request, cookieName string) (key string, fromCookie bool) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		if tok := strings.TrimSpace(auth[len("bearer "):]); tok != "" {
			return tok, false
		}
	}
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k, false
	}
	if k := strings.TrimSpace(r.URL.Query().Get("api_key")); k != "" {
		return k, false
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			if v := strings.TrimSpace(c.Value); v != "" {
				return v, true
			}
		}
	}
	return "", false
}
