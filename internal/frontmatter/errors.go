package frontmatter

import (
	"fmt"

	"github.com/starford/noteprops/internal/apperr"
)

// MalformedError reports a frontmatter block that was found but could not
// be decoded in the configured language.
type MalformedError struct {
	Path     string
	Language Language
	Err      error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: malformed %s frontmatter: %v", e.Path, e.Language, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is lets errors.Is match apperr.ErrMalformedFrontmatter.
func (e *MalformedError) Is(target error) bool {
	return target == apperr.ErrMalformedFrontmatter
}
