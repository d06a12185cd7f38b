// Package frontmatter locates the delimited metadata block at the top of a
// document and decodes it from YAML or TOML into an ordered mapping.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	adrg "github.com/adrg/frontmatter"

	"github.com/starford/noteprops/internal/apperr"
)

// Result is a decoded document.
type Result struct {
	// Metadata is empty, never nil, when the document has no block.
	Metadata *Metadata
	// Body is everything after the closing delimiter line, untouched.
	Body []byte
	// Found reports whether a complete block was present.
	Found bool
}

// Parse splits data into its frontmatter block and body. The block must
// open on the first line. A missing block, or an opening line without a
// matching close, is not an error. A block that fails to decode returns a
// *MalformedError naming path.
func Parse(path string, data []byte, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	decode, err := decoderFor(opts.Language)
	if err != nil {
		return nil, err
	}

	res := &Result{Metadata: NewMetadata()}
	open := strings.TrimSpace(opts.Delimiters.Open)
	if !bytes.HasPrefix(bytes.TrimPrefix(data, utf8BOM), []byte(open)) {
		res.Body = data
		return res, nil
	}

	format := adrg.NewFormat(
		open,
		strings.TrimSpace(opts.Delimiters.Close),
		func(block []byte, _ interface{}) error {
			md, err := decode(block)
			if err != nil {
				return err
			}
			res.Metadata = md
			res.Found = true
			return nil
		},
	)

	body, err := adrg.Parse(bytes.NewReader(data), nil, format)
	if err != nil {
		return nil, &MalformedError{Path: path, Language: opts.Language, Err: err}
	}
	res.Body = body
	return res, nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

func decoderFor(lang Language) (func([]byte) (*Metadata, error), error) {
	switch lang {
	case YAML:
		return decodeYAML, nil
	case TOML:
		return decodeTOML, nil
	}
	return nil, fmt.Errorf("frontmatter: %w: %q", apperr.ErrUnsupportedLanguage, lang)
}
