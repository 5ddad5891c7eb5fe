// middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// ReadOnlyCORS lets the listed origins read GET endpoints such as /health
// from a browser. Credentials are never allowed. With no origins it is a
// pass-through.
func ReadOnlyCORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"Accept"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
