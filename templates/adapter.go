// templates/adapter.go
package templates

import (
	"bytes"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrorTemplate is the entry template used for every error page.
const ErrorTemplate = "error_page"

// Flash is a one-time status message shown on the next rendered page.
type Flash struct {
	Category string // "success" | "error"
	Message  string
}

// Page is the data handed to every page template. The layout reads
// SiteName, Title, Path, Year and Flash; Data carries page-specific values.
type Page struct {
	SiteName string
	Title    string
	Path     string
	Year     int
	Flash    *Flash
	Data     any
}

// ErrorInfo is Page.Data for ErrorTemplate.
type ErrorInfo struct {
	Status  int
	Heading string
	Message string
}

// Renderer writes pages and error pages as HTTP responses.
type Renderer struct {
	engine   *Engine
	logger   *zap.Logger
	siteName string
}

// NewRenderer wraps a booted engine.
func NewRenderer(e *Engine, logger *zap.Logger, siteName string) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{engine: e, logger: logger, siteName: siteName}
}

// Page renders the entry template name with status. A render failure is
// logged and answered with the 500 page.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, name string, p Page) {
	rd.fill(r, &p)

	var buf bytes.Buffer
	if err := rd.engine.Render(&buf, name, p); err != nil {
		rd.logger.Error("template render failed", zap.String("name", name), zap.Error(err))
		if name != ErrorTemplate {
			rd.Error(w, r, http.StatusInternalServerError)
			return
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Error renders the error page for status (403, 404, 405, 500, 503; anything
// else uses the generic 500 copy).
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, status int) {
	heading, message := errorCopy(status)
	rd.Page(w, r, status, ErrorTemplate, Page{
		Title: heading,
		Data:  ErrorInfo{Status: status, Heading: heading, Message: message},
	})
}

func (rd *Renderer) fill(r *http.Request, p *Page) {
	if p.SiteName == "" {
		p.SiteName = rd.siteName
	}
	if p.Path == "" && r != nil {
		p.Path = r.URL.Path
	}
	if p.Year == 0 {
		p.Year = time.Now().Year()
	}
}

func errorCopy(status int) (heading, message string) {
	switch status {
	case http.StatusForbidden:
		return "Access denied", "You don't have permission to view this page."
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return "Page not found", "The page you're looking for doesn't exist or has moved."
	case http.StatusServiceUnavailable:
		return "Temporarily unavailable", "We're performing scheduled maintenance. Please check back soon."
	default:
		return "Something went wrong", "An unexpected error occurred on our side. Please try again later."
	}
}
