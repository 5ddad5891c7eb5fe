package site

import (
	"net/http"

	"github.com/dalemusser/corpsite/contact"
	"github.com/dalemusser/corpsite/pantry/session"
	"github.com/dalemusser/corpsite/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the dependencies of the page and form routes. Routes expect
// session.Middleware to run first; without it flashes are simply dropped.
type Handler struct {
	pages  *templates.Renderer
	forms  *contact.Handler
	logger *zap.Logger
}

// NewHandler wires pages and forms together.
func NewHandler(pages *templates.Renderer, forms *contact.Handler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pages: pages, forms: forms, logger: logger}
}

type careersData struct {
	Jobs        []Job
	ApplyAction string
}

type contactData struct {
	Services []string
}

// Routes mounts every page and form endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.page("home", "Home", nil))
	r.Get("/careers", h.page("careers", "Careers", careersData{Jobs: Openings, ApplyAction: "/apply"}))
	r.Get("/contact", h.page("contact", "Contact", contactData{Services: Services}))
	r.Get("/privacy", h.page("privacy", "Privacy Policy", nil))
	r.Get("/terms", h.page("terms", "Terms of Service", nil))

	r.Get("/demo", h.page("demo", "Demo", nil))
	r.Get("/demo/contact", h.page("demo_contact", "Demo Contact", nil))
	r.Get("/demo/careers", h.page("demo_careers", "Demo Careers", careersData{Jobs: DemoOpenings, ApplyAction: "/careers/apply"}))

	r.Post("/contact", h.submit(contact.KindBusiness))
	r.Post("/demo/contact", h.submit(contact.KindDemo))
	r.Post("/apply", h.submit(contact.KindJob))
	r.Post("/careers/apply", h.submit(contact.KindJob))
}

// page renders a static page, consuming any pending flash.
func (h *Handler) page(name, title string, data any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := templates.Page{Title: title, Data: data}
		if cat, msg, ok := session.PopFlash(session.FromContext(r.Context())); ok {
			p.Flash = &templates.Flash{Category: cat, Message: msg}
		}
		h.pages.Page(w, r, http.StatusOK, name, p)
	}
}

// submit runs the form handler and answers POST/redirect/GET style.
func (h *Handler) submit(kind contact.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			// Oversized or malformed bodies fall through to validation with
			// whatever was parsed.
			h.logger.Warn("form parse failed", zap.String("form", string(kind)), zap.Error(err))
		}

		out := h.forms.Handle(r.Context(), kind, contact.FieldsFromValues(r.PostForm))
		session.AddFlash(session.FromContext(r.Context()), out.Category(), out.Message)
		http.Redirect(w, r, out.Redirect, http.StatusSeeOther)
	}
}
