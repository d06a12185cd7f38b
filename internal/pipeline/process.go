// Package pipeline runs documents through parsing, normalization, slug and
// link derivation and visibility filtering, and writes the build output.
package pipeline

import (
	"encoding/json"
	"sort"

	"github.com/starford/noteprops/internal/checksum"
	"github.com/starford/noteprops/internal/frontmatter"
	"github.com/starford/noteprops/internal/links"
	"github.com/starford/noteprops/internal/normalize"
	"github.com/starford/noteprops/internal/registry"
	"github.com/starford/noteprops/internal/slug"
	"github.com/starford/noteprops/internal/visibility"
)

// Options configure per-document processing.
type Options struct {
	Parse              frontmatter.Options
	Visibility         visibility.Options
	HidePropertiesView bool
}

// DefaultOptions mirrors the defaults of every sub-step.
func DefaultOptions() Options {
	return Options{
		Parse:      frontmatter.DefaultOptions(),
		Visibility: visibility.DefaultOptions(),
	}
}

// fingerprint folds the options into record checksums so a settings
// change invalidates indexed records whose content did not change.
func (o Options) fingerprint() []byte {
	b, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	return b
}

// Record is the output of processing one document.
type Record struct {
	Path           string                     `json:"path"`
	Slug           string                     `json:"slug"`
	Checksum       string                     `json:"checksum"`
	Frontmatter    *frontmatter.Metadata      `json:"frontmatter"`
	NoteProperties *visibility.NoteProperties `json:"noteProperties"`
	// Aliases are the path identifiers derived from aliases and permalink.
	Aliases []string `json:"aliases"`
	// FrontmatterLinks are link targets found in frontmatter values, in
	// field order, duplicates kept.
	FrontmatterLinks []string `json:"frontmatterLinks"`
	// Outgoing are the sorted, unique slugs that internal frontmatter links
	// point at.
	Outgoing []string `json:"outgoing"`
	Body     []byte   `json:"-"`
}

// Title is the normalized title.
func (r *Record) Title() string { return normalize.Title(r.Frontmatter) }

// Tags are the normalized tags, possibly empty.
func (r *Record) Tags() []string {
	if t := normalize.Strings(r.Frontmatter, normalize.TagsKey); t != nil {
		return t
	}
	return []string{}
}

// Process handles one document. Derived slugs and link targets are also
// added to acc under path when acc is non-nil. The only error is a
// malformed frontmatter block (or an unsupported language setting).
func Process(path string, data []byte, opts Options, acc *registry.Accumulator) (*Record, error) {
	parsed, err := frontmatter.Parse(path, data, opts.Parse)
	if err != nil {
		return nil, err
	}

	md := normalize.Normalize(parsed.Metadata, path)

	derived := make([]string, 0)
	for _, alias := range normalize.Strings(md, normalize.AliasesKey) {
		if s := slug.FromAlias(alias); s != "" {
			derived = append(derived, s)
		}
	}
	if p, ok := normalize.Permalink(md); ok {
		derived = append(derived, p)
	}

	self := slug.FromFilePath(path)
	targets := make([]string, 0)
	seen := make(map[string]struct{})
	outgoing := make([]string, 0)
	md.Range(func(_ string, v any) bool {
		for _, m := range links.ExtractMatches(v) {
			targets = append(targets, m.Target)
			dest, _, ok := links.Resolve(self, m)
			if _, dup := seen[dest]; !ok || dup {
				continue
			}
			seen[dest] = struct{}{}
			outgoing = append(outgoing, dest)
		}
		return true
	})
	sort.Strings(outgoing)

	if acc != nil {
		acc.AddSlugs(path, derived...)
		acc.AddLinks(path, targets...)
	}

	return &Record{
		Path:             path,
		Slug:             self,
		Checksum:         checksum.Of(data, opts.fingerprint()),
		Frontmatter:      md,
		NoteProperties:   visibility.Build(md, opts.Visibility, opts.HidePropertiesView),
		Aliases:          derived,
		FrontmatterLinks: targets,
		Outgoing:         outgoing,
		Body:             parsed.Body,
	}, nil
}
