// Package slug turns file paths, aliases and tags into URL-safe path
// identifiers and resolves them relative to one another.
package slug

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownExt is stripped from file paths before slugifying.
const MarkdownExt = ".md"

var (
	whitespaceRe = regexp.MustCompile(`[\s\x0B\p{Zs}\x{FEFF}]+`)
	disallowedRe = regexp.MustCompile(`[^\w\p{L}\p{M}\p{N}/-]`)
)

func segment(s string) string {
	s = whitespaceRe.ReplaceAllString(s, "-")
	return disallowedRe.ReplaceAllString(s, "")
}

// FromFilePath derives the slug of a document path. It is idempotent and
// keeps segment order.
func FromFilePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimSuffix(p, MarkdownExt)

	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = segment(part)
	}
	return strings.TrimRight(strings.Join(parts, "/"), "/")
}

// FromAlias treats an alias as a file path, adding the markdown extension
// when it is missing.
func FromAlias(alias string) string {
	if !strings.HasSuffix(alias, MarkdownExt) {
		alias += MarkdownExt
	}
	return FromFilePath(alias)
}

// Tag slugifies one tag: lowercase, whitespace to hyphens, nested tag
// segments kept.
func Tag(tag string) string {
	lower := cases.Lower(language.Und)
	parts := strings.Split(strings.TrimSpace(tag), "/")
	for i, part := range parts {
		parts[i] = lower.String(segment(part))
	}
	return strings.Join(parts, "/")
}

// Tags slugifies tags, dropping empties and later duplicates.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		s := Tag(t)
		if strings.Trim(s, "/") == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Anchor slugifies a heading fragment.
func Anchor(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(segment(s), "/", "")
}

// PathToRoot returns the relative path from slug's directory back to the
// site root, "." for top-level documents.
func PathToRoot(slug string) string {
	var ups []string
	parts := strings.Split(slug, "/")
	for _, p := range parts[:len(parts)-1] {
		if p != "" {
			ups = append(ups, "..")
		}
	}
	if len(ups) == 0 {
		return "."
	}
	return strings.Join(ups, "/")
}

// Simplify drops a trailing "index" segment and leading slashes.
func Simplify(slug string) string {
	if slug == "index" {
		slug = ""
	} else if strings.HasSuffix(slug, "/index") {
		slug = strings.TrimSuffix(slug, "index")
	}
	slug = strings.TrimLeft(slug, "/")
	if slug == "" {
		return "/"
	}
	return slug
}

// Relative returns an href that reaches target from the page at current.
func Relative(current, target string) string {
	return join(PathToRoot(current), Simplify(target))
}

// ResolveLink turns a link target written inside the document at current
// into a site slug plus optional fragment. Targets starting with "/" are
// taken from the site root, others from current's directory.
func ResolveLink(current, target string) (slug, fragment string) {
	target, fragment, _ = strings.Cut(target, "#")
	if target == "" {
		return current, fragment
	}
	var full string
	if strings.HasPrefix(target, "/") {
		full = path.Clean(target)
	} else {
		full = path.Join(path.Dir(current), target)
	}
	return FromFilePath(strings.TrimPrefix(full, "/")), fragment
}

func join(segments ...string) string {
	var kept []string
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	out := strings.Join(kept, "/")
	for strings.Contains(out, "//") {
		out = strings.ReplaceAll(out, "//", "/")
	}
	return out
}
