package middleware

import (
	"net/http"
	"strconv"
)

// retryAfterSeconds is advertised to clients while maintenance is on.
const retryAfterSeconds = 600

// Maintenance serves the 503 page for every request while enabled.
// Mount it on the page routes only; health checks and static assets stay up.
func Maintenance(enabled bool, pages ErrorRenderer) func(next http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			pages.Error(w, r, http.StatusServiceUnavailable)
		})
	}
}
