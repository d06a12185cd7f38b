// Package visibility selects which normalized fields the properties panel
// shows and packages them with the per-document display overrides.
package visibility

import (
	"github.com/starford/noteprops/internal/frontmatter"
	"github.com/starford/noteprops/internal/value"
)

// Frontmatter fields that override display settings for one document.
const (
	ShowPropertiesKey     = "showProperties"
	CollapsePropertiesKey = "collapseProperties"
)

// DefaultIncluded is the allow-list used when none is configured.
var DefaultIncluded = []string{"description", "tags", "aliases"}

// DefaultExcluded keeps the display overrides out of the panel when every
// field is shown.
var DefaultExcluded = []string{ShowPropertiesKey, CollapsePropertiesKey}

// Options select visible fields. Exclusion always wins.
type Options struct {
	IncludeAll         bool     `yaml:"include_all" toml:"include_all" json:"includeAll"`
	IncludedProperties []string `yaml:"included_properties" toml:"included_properties" json:"includedProperties"`
	ExcludedProperties []string `yaml:"excluded_properties" toml:"excluded_properties" json:"excludedProperties"`
}

// DefaultOptions shows description, tags and aliases.
func DefaultOptions() Options {
	return Options{
		IncludedProperties: append([]string(nil), DefaultIncluded...),
		ExcludedProperties: append([]string(nil), DefaultExcluded...),
	}
}

// Filter returns the visible subset of md. With IncludeAll every field is
// kept in document order; otherwise IncludedProperties decides both
// membership and order. Unknown names are ignored.
func Filter(md *frontmatter.Metadata, opts Options) *frontmatter.Metadata {
	excluded := make(map[string]struct{}, len(opts.ExcludedProperties))
	for _, k := range opts.ExcludedProperties {
		excluded[k] = struct{}{}
	}
	isExcluded := func(k string) bool {
		_, ok := excluded[k]
		return ok
	}

	out := frontmatter.NewMetadata()
	if opts.IncludeAll {
		md.Range(func(k string, v any) bool {
			if !isExcluded(k) {
				out.Set(k, v)
			}
			return true
		})
		return out
	}

	for _, k := range opts.IncludedProperties {
		if isExcluded(k) || out.Has(k) {
			continue
		}
		if v, ok := md.Get(k); ok {
			out.Set(k, v)
		}
	}
	return out
}

// NoteProperties is what the renderer receives for one document.
type NoteProperties struct {
	Properties *frontmatter.Metadata `json:"properties"`
	HideView   bool                  `json:"hideView"`
	// ShowProperties and CollapseProperties are unset unless the document
	// overrides them.
	ShowProperties     *bool `json:"showProperties,omitempty"`
	CollapseProperties *bool `json:"collapseProperties,omitempty"`
}

// Build filters md and reads the per-document overrides from it.
func Build(md *frontmatter.Metadata, opts Options, hideView bool) *NoteProperties {
	return &NoteProperties{
		Properties:         Filter(md, opts),
		HideView:           hideView,
		ShowProperties:     override(md, ShowPropertiesKey),
		CollapseProperties: override(md, CollapsePropertiesKey),
	}
}

func override(md *frontmatter.Metadata, key string) *bool {
	v, ok := md.Get(key)
	if !ok {
		return nil
	}
	b, ok := value.AsBool(v)
	if !ok {
		return nil
	}
	return &b
}

// Visible reports whether the panel should be drawn. A document override
// beats the global hide flag; an empty selection is never drawn.
func (np *NoteProperties) Visible() bool {
	if np == nil || np.Properties.Len() == 0 {
		return false
	}
	if np.ShowProperties != nil {
		return *np.ShowProperties
	}
	return !np.HideView
}

// Collapsed resolves the initial collapsed state against the component
// default.
func (np *NoteProperties) Collapsed(def bool) bool {
	if np != nil && np.CollapseProperties != nil {
		return *np.CollapseProperties
	}
	return def
}
