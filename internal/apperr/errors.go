package apperr

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrMalformedFrontmatter = errors.New("malformed frontmatter")
	ErrUnsupportedLanguage  = errors.New("unsupported frontmatter language")
)
