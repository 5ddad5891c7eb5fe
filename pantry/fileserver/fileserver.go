// pantry/fileserver/fileserver.go

// Package fileserver serves static assets from an fs.FS (usually embedded)
// with support for pre-compressed variants.
//
// When the client accepts Brotli or gzip and a sibling file with a .br or
// .gz suffix exists, that file is served with the matching Content-Encoding
// and the original file's Content-Type. Directory requests are refused with
// 403 instead of being listed.
package fileserver

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

// Options configures Handler.
type Options struct {
	// CacheControl is set on every successful response when non-empty.
	CacheControl string
	// Forbidden answers directory requests. Default: plain 403.
	Forbidden http.Handler
	// NotFound answers missing files. Default: http.NotFound.
	NotFound http.Handler
}

// Handler serves files from fsys under urlPrefix. A request for
// "/static/js/app.js" with urlPrefix "/static" opens "js/app.js".
//
//	r.Handle("/static/*", fileserver.Handler("/static", staticFS, fileserver.Options{}))
func Handler(urlPrefix string, fsys fs.FS, opts Options) http.Handler {
	if opts.Forbidden == nil {
		opts.Forbidden = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
	if opts.NotFound == nil {
		opts.NotFound = http.HandlerFunc(http.NotFound)
	}

	return http.StripPrefix(urlPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			opts.Forbidden.ServeHTTP(w, r)
			return
		}

		fi, err := fs.Stat(fsys, name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			opts.NotFound.ServeHTTP(w, r)
			return
		case err != nil:
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		case fi.IsDir():
			opts.Forbidden.ServeHTTP(w, r)
			return
		}

		if opts.CacheControl != "" {
			w.Header().Set("Cache-Control", opts.CacheControl)
		}

		// Pre-compressed variants: .br first, then .gz.
		for _, cand := range []struct{ ext, encoding string }{{".br", "br"}, {".gz", "gzip"}} {
			if !acceptsEncoding(r, cand.encoding) {
				continue
			}
			if serveFile(w, r, fsys, name+cand.ext, name, cand.encoding) {
				return
			}
		}

		w.Header().Add("Vary", "Accept-Encoding")
		if !serveFile(w, r, fsys, name, name, "") {
			opts.NotFound.ServeHTTP(w, r)
		}
	}))
}

// serveFile writes file with the Content-Type of original. It returns false
// without writing anything when file cannot be opened as a regular file.
func serveFile(w http.ResponseWriter, r *http.Request, fsys fs.FS, file, original, encoding string) bool {
	f, err := fsys.Open(file)
	if err != nil {
		return false
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		return false
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(f)
		if err != nil {
			return false
		}
		content = bytes.NewReader(b)
	}

	if encoding != "" {
		w.Header().Set("Content-Encoding", encoding)
		w.Header().Add("Vary", "Accept-Encoding")
	}
	w.Header().Set("Content-Type", mimeTypeByOriginal(original))

	// embed.FS reports a zero ModTime, so no Last-Modified is sent.
	http.ServeContent(w, r, original, fi.ModTime(), content)
	return true
}

// acceptsEncoding reports whether Accept-Encoding lists encoding with a
// non-zero quality.
func acceptsEncoding(r *http.Request, encoding string) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		enc, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(enc), encoding) {
			continue
		}
		q := strings.ReplaceAll(params, " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

func mimeTypeByOriginal(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	switch ext {
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	case ".webmanifest":
		return "application/manifest+json"
	default:
		return "application/octet-stream"
	}
}
