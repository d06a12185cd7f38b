// Package storage defines the file-system abstraction for source documents
// and build output.
package storage

import "github.com/starford/noteprops/internal/models"

// Provider is the interface for file operations under one root.
type Provider interface {
	// Root is the absolute directory all paths are relative to.
	Root() string
	// List returns every .md file under dir (relative to root), skipping
	// hidden directories.
	List(dir string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}
