package api

import (
	"github.com/starford/noteprops/internal/docservice"
	"github.com/starford/noteprops/internal/models"
	"github.com/starford/noteprops/internal/pipeline"
)

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.DocumentSummary `json:"documents" validate:"required"`
	Total     int                      `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse lists the documents linking to one document.
type BacklinksResponse struct {
	Path      string   `json:"path" example:"notes/hello.md" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// ResolveResponse lists the documents claiming a slug.
type ResolveResponse struct {
	Slug  string   `json:"slug" example:"notes/hello" validate:"required"`
	Paths []string `json:"paths" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Slug    string `json:"slug" example:"notes/hello" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// FailuresResponse lists documents the latest build rejected.
type FailuresResponse struct {
	Failures []pipeline.Failure `json:"failures" validate:"required"`
}
