// Package normalize reconciles frontmatter field synonyms into one canonical
// schema and coerces the list-valued fields.
package normalize

import (
	"path"
	"strings"

	"github.com/starford/noteprops/internal/frontmatter"
	"github.com/starford/noteprops/internal/slug"
	"github.com/starford/noteprops/internal/value"
)

// Coercion says how a canonical field's value is reshaped.
type Coercion int

const (
	// Keep stores the resolved value untouched.
	Keep Coercion = iota
	// List turns a scalar or list into a list of strings.
	List
	// TagList is List followed by tag slugification and de-duplication.
	TagList
)

func (c Coercion) String() string {
	switch c {
	case List:
		return "list"
	case TagList:
		return "tags"
	}
	return "keep"
}

// Group is a set of synonymous field names. The first key holding a
// non-null value supplies the canonical field.
type Group struct {
	Canonical string
	Keys      []string
	Coerce    Coercion
	// Fallback names another canonical field whose value is copied when
	// no key of this group has one.
	Fallback string
}

// Groups lists every alias group in resolution order.
var Groups = []Group{
	{Canonical: "tags", Keys: []string{"tags", "tag"}, Coerce: TagList},
	{Canonical: "aliases", Keys: []string{"aliases", "alias"}, Coerce: List},
	{Canonical: "cssclasses", Keys: []string{"cssclasses", "cssclass"}, Coerce: List},
	{Canonical: "socialImage", Keys: []string{"socialImage", "image", "cover"}},
	{Canonical: "created", Keys: []string{"created", "date"}},
	{Canonical: "modified", Keys: []string{"modified", "lastmod", "updated", "last-modified"}, Fallback: "created"},
	{Canonical: "published", Keys: []string{"published", "publishDate", "date"}},
}

const (
	TitleKey     = "title"
	PermalinkKey = "permalink"
	TagsKey      = "tags"
	AliasesKey   = "aliases"

	// Untitled is the title of a document with neither a title field nor a
	// usable file name.
	Untitled = "Untitled"
)

// Normalize returns the canonical form of raw for the document at
// filePath. raw is not modified. Fields outside any group keep their
// position; a canonical field takes the position of the first group key
// present in raw.
func Normalize(raw *frontmatter.Metadata, filePath string) *frontmatter.Metadata {
	resolved := resolveGroups(raw)

	members := make(map[string][]int)
	for gi, g := range Groups {
		for _, k := range g.Keys {
			members[k] = append(members[k], gi)
		}
	}

	out := frontmatter.NewMetadata()
	title := resolveTitle(raw, filePath)
	if !raw.Has(TitleKey) {
		out.Set(TitleKey, title)
	}

	placed := make([]bool, len(Groups))
	var place func(gi int)
	place = func(gi int) {
		if placed[gi] {
			return
		}
		placed[gi] = true
		g := Groups[gi]
		if v, ok := resolved[g.Canonical]; ok {
			out.Set(g.Canonical, v)
		} else if raw.Has(g.Canonical) {
			out.Set(g.Canonical, nil)
		}
		// Fields that fall back to this one sit right after it when they
		// have no key of their own.
		for fi, f := range Groups {
			if f.Fallback == g.Canonical && !hasAnyKey(raw, f) {
				place(fi)
			}
		}
	}

	raw.Range(func(k string, v any) bool {
		switch {
		case k == TitleKey:
			out.Set(TitleKey, title)
		case k == PermalinkKey:
			out.Set(PermalinkKey, normalizePermalink(v))
		case len(members[k]) > 0:
			for _, gi := range members[k] {
				place(gi)
			}
		default:
			out.Set(k, v)
		}
		return true
	})

	for gi := range Groups {
		if _, ok := resolved[Groups[gi].Canonical]; ok {
			place(gi)
		}
	}
	return out
}

func resolveGroups(raw *frontmatter.Metadata) map[string]any {
	resolved := make(map[string]any, len(Groups))
	for _, g := range Groups {
		v, ok := firstPresent(raw, g.Keys)
		if !ok {
			continue
		}
		switch g.Coerce {
		case List:
			resolved[g.Canonical] = CoerceList(v)
		case TagList:
			resolved[g.Canonical] = slug.Tags(CoerceList(v))
		default:
			resolved[g.Canonical] = v
		}
	}
	for _, g := range Groups {
		if g.Fallback == "" {
			continue
		}
		if _, ok := resolved[g.Canonical]; ok {
			continue
		}
		if fb, ok := resolved[g.Fallback]; ok {
			resolved[g.Canonical] = fb
		}
	}
	return resolved
}

func firstPresent(md *frontmatter.Metadata, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := md.Get(k); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func hasAnyKey(md *frontmatter.Metadata, g Group) bool {
	for _, k := range g.Keys {
		if md.Has(k) {
			return true
		}
	}
	return false
}

func resolveTitle(raw *frontmatter.Metadata, filePath string) string {
	if v, ok := raw.Get(TitleKey); ok && v != nil {
		if s := value.Stringify(v); s != "" {
			return s
		}
	}
	if stem := Stem(filePath); stem != "" {
		return stem
	}
	return Untitled
}

func normalizePermalink(v any) any {
	if v == nil {
		return nil
	}
	if s := value.Stringify(v); s != "" {
		return s
	}
	return v
}

// Stem is the base file name of p without its extension.
func Stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// CoerceList reshapes a scalar-or-list field: lists keep their string and
// number entries, anything else is stringified and split on commas.
// Empty pieces of a split are dropped.
func CoerceList(v any) []string {
	if value.KindOf(v) == value.List {
		items := value.Items(v)
		out := make([]string, 0, len(items))
		for _, item := range items {
			switch value.KindOf(item) {
			case value.String, value.Number:
				out = append(out, value.Stringify(item))
			}
		}
		return out
	}

	var out []string
	for _, piece := range strings.Split(value.Stringify(v), ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			out = append(out, piece)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Title returns the normalized title.
func Title(md *frontmatter.Metadata) string {
	v, _ := md.Get(TitleKey)
	s, _ := v.(string)
	return s
}

// Strings returns a normalized list field, or nil when it is absent.
func Strings(md *frontmatter.Metadata, key string) []string {
	v, _ := md.Get(key)
	if l, ok := v.([]string); ok {
		return l
	}
	return nil
}

// Permalink returns the normalized permalink when one is set.
func Permalink(md *frontmatter.Metadata) (string, bool) {
	v, _ := md.Get(PermalinkKey)
	s, ok := v.(string)
	return s, ok && s != ""
}
