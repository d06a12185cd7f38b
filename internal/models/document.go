// Package models defines the types shared by the index, the service layer
// and the HTTP and MCP surfaces.
package models

import "time"

// LinkTypeFrontmatter marks links declared inside frontmatter values.
const LinkTypeFrontmatter = "frontmatter"

// FileInfo describes a source document found by a storage provider.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentSummary is a lightweight item in list responses.
type DocumentSummary struct {
	Path      string    `json:"path"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a directed reference from one document to a target string.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}
