package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteprops/internal/docservice"
	"github.com/starford/noteprops/internal/metrics"
	"github.com/starford/noteprops/internal/render"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler, rec metrics.Recorder) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(rec))
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)
	r.Get("/properties/*", h.GetProperties)
	r.Get("/failures", h.Failures)

	// Links and slugs.
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/registry", h.Registry)
	r.Get("/resolve/*", h.Resolve)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewPreviewRouter serves preview pages and the panel assets without
// authentication.
func NewPreviewRouter(svc *docservice.Service, rec metrics.Recorder) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(rec))
	r.Get("/preview/*", h.Preview)
	r.Get(docservice.StaticPrefix+render.StylesheetName, stylesheetHandler)
	r.Get(docservice.StaticPrefix+render.ScriptName, scriptHandler)
	return r
}
