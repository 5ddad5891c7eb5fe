// Package pprof exposes the runtime profiler over HTTP.
package pprof

import (
	stdpprof "net/http/pprof"

	"github.com/go-chi/chi/v5"
)

// Prefix is where Mount attaches the profiler.
const Prefix = "/debug/pprof"

// Mount attaches the net/http/pprof handlers under Prefix. Named profiles
// (heap, goroutine, allocs, block, mutex) resolve through the index.
// There is no auth in front of it; callers gate it on config.
func Mount(r chi.Router) {
	r.Route(Prefix, func(r chi.Router) {
		r.Get("/", stdpprof.Index)
		r.Get("/cmdline", stdpprof.Cmdline)
		r.Get("/profile", stdpprof.Profile)
		r.Get("/symbol", stdpprof.Symbol)
		r.Post("/symbol", stdpprof.Symbol)
		r.Get("/trace", stdpprof.Trace)
		r.Get("/{name}", stdpprof.Index)
	})
}
