package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteprops/internal/apperr"
	"github.com/starford/noteprops/internal/docservice"
	"github.com/starford/noteprops/internal/render"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcard extracts everything matched by the trailing "*" of the route.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func wildcard(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, op, subject string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("path", subject), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination and filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), limit, offset, q.Get("tag"))
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get the processed frontmatter of a document
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := wildcard(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get document", path, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetProperties handles GET /api/properties/*.
// It returns the rendered panel as an HTML fragment, or 204 when the
// panel is suppressed for the document.
//
//	@Summary		Render the properties panel of a document
//	@Tags			documents
//	@Produce		html
//	@Param			path	path	string	true	"Document path"
//	@Param			locale	query	string	false	"Panel locale"
//	@Success		200
//	@Success		204
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties/{path} [get]
func (h *Handler) GetProperties(w http.ResponseWriter, r *http.Request) {
	path := wildcard(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	fragment, err := h.svc.RenderProperties(r.Context(), path, r.URL.Query().Get("locale"))
	if err != nil {
		writeServiceError(w, "render properties", path, err)
		return
	}
	if fragment == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeBody(w, contentTypeHTML, []byte(fragment))
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List documents whose frontmatter links to a document
//	@Tags			links
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := wildcard(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		writeServiceError(w, "backlinks", path, err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Path: path, Backlinks: bl})
}

// Registry handles GET /api/registry.
//
//	@Summary		Known slugs and frontmatter links of the latest build
//	@Tags			links
//	@Produce		json
//	@Success		200	{object}	registry.Snapshot
//	@Security		BearerAuth
//	@Router			/registry [get]
func (h *Handler) Registry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Registry(r.Context()))
}

// Resolve handles GET /api/resolve/*.
//
//	@Summary		Find the documents claiming a slug
//	@Tags			links
//	@Produce		json
//	@Param			slug	path		string	true	"Slug or alias"
//	@Success		200		{object}	ResolveResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve/{slug} [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	slug := wildcard(r)
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	paths, err := h.svc.ResolveSlug(r.Context(), slug)
	if err != nil {
		writeServiceError(w, "resolve slug", slug, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Slug: slug, Paths: paths})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across titles, bodies and frontmatter
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Path: res.Path, Slug: res.Slug, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Failures handles GET /api/failures.
//
//	@Summary		Documents rejected by the latest build
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	FailuresResponse
//	@Security		BearerAuth
//	@Router			/failures [get]
func (h *Handler) Failures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FailuresResponse{Failures: h.svc.Failures(r.Context())})
}

// Preview handles GET /preview/*, addressed by slug or alias.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	slug := wildcard(r)
	if slug == "" {
		slug = "index"
	}
	path, err := h.svc.ResolveDocument(r.Context(), slug)
	if err != nil {
		writeServiceError(w, "resolve preview", slug, err)
		return
	}
	page, err := h.svc.Preview(r.Context(), path)
	if err != nil {
		writeServiceError(w, "preview", path, err)
		return
	}
	writeBody(w, contentTypeHTML, page)
}

// asset serves an embedded panel asset.
func asset(contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeBody(w, contentType, []byte(body))
	}
}

var (
	stylesheetHandler = asset(contentTypeCSS, render.Stylesheet)
	scriptHandler     = asset(contentTypeJS, render.Script)
)
