// Package links finds wikilinks, markdown links and bare URLs inside
// frontmatter strings.
package links

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/noteprops/internal/slug"
	"github.com/starford/noteprops/internal/value"
)

// Kind identifies a link syntax. Lower kinds win when spans overlap.
type Kind int

const (
	Wiki Kind = iota
	Markdown
	URL
)

func (k Kind) String() string {
	switch k {
	case Wiki:
		return "wikilink"
	case Markdown:
		return "markdown"
	case URL:
		return "url"
	}
	return "unknown"
}

var patterns = [...]*regexp.Regexp{
	Wiki:     regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`),
	Markdown: regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`),
	URL:      regexp.MustCompile(`https?://[^\s<>"\[\]]+`),
}

const urlTrailing = `.,;:!?)'"`

// Match is one link found in a string. Start and End are byte offsets of
// the whole syntax, so s[Start:End] is the source text.
type Match struct {
	Kind   Kind
	Start  int
	End    int
	Target string
	// Text is what a reader sees: the wikilink display part or its target,
	// the markdown link text, or the URL itself.
	Text string
}

// Scan returns the non-overlapping links of the requested kinds in s, in
// source order. When spans overlap, wikilinks beat markdown links which
// beat bare URLs. With no kinds, all three are scanned.
func Scan(s string, kinds ...Kind) []Match {
	if len(kinds) == 0 {
		kinds = []Kind{Wiki, Markdown, URL}
	}
	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	var claimed []Match
	for k := Wiki; k <= URL; k++ {
		if !want[k] {
			continue
		}
		for _, loc := range patterns[k].FindAllStringSubmatchIndex(s, -1) {
			m, ok := build(k, s, loc)
			if !ok || overlaps(claimed, m) {
				continue
			}
			claimed = append(claimed, m)
		}
	}

	sort.Slice(claimed, func(i, j int) bool { return claimed[i].Start < claimed[j].Start })
	return claimed
}

func build(k Kind, s string, loc []int) (Match, bool) {
	m := Match{Kind: k, Start: loc[0], End: loc[1]}
	switch k {
	case Wiki:
		m.Target = s[loc[2]:loc[3]]
		m.Text = strings.TrimSpace(m.Target)
		if loc[4] >= 0 {
			if display := strings.TrimSpace(s[loc[4]:loc[5]]); display != "" {
				m.Text = display
			}
		}
	case Markdown:
		m.Text = s[loc[2]:loc[3]]
		m.Target = s[loc[4]:loc[5]]
	case URL:
		raw := strings.TrimRight(s[loc[0]:loc[1]], urlTrailing)
		m.End = m.Start + len(raw)
		m.Target, m.Text = raw, raw
	}
	return m, m.Target != ""
}

// Blank reports whether m is a wikilink or markdown link whose target is
// only whitespace. Such links are extracted but point nowhere.
func Blank(m Match) bool {
	return m.Kind != URL && strings.TrimSpace(m.Target) == ""
}

func overlaps(claimed []Match, m Match) bool {
	for _, c := range claimed {
		if m.Start < c.End && c.Start < m.End {
			return true
		}
	}
	return false
}

// Extract collects wikilink and markdown link targets, as written, from
// every string reachable from v, in order. Duplicates are kept.
func Extract(v any) []string {
	var out []string
	for _, m := range ExtractMatches(v) {
		out = append(out, m.Target)
	}
	return out
}

// ExtractMatches is Extract keeping the full matches.
func ExtractMatches(v any) []Match {
	var out []Match
	value.Walk(v, func(s string) {
		out = append(out, Scan(s, Wiki, Markdown)...)
	})
	return out
}

// Resolve maps a link written in the document whose slug is current to the
// slug it points at plus an optional fragment. Wikilinks name a file path
// from the site root; markdown links are relative to current's directory
// unless they start with "/". ok is false for external and blank links.
func Resolve(current string, m Match) (dest, fragment string, ok bool) {
	target := strings.TrimSpace(m.Target)
	switch {
	case m.Kind == URL, IsExternal(target), Blank(m):
		return "", "", false
	case m.Kind == Wiki:
		path, frag, _ := strings.Cut(target, "#")
		if path == "" {
			return current, frag, true
		}
		return slug.FromFilePath(path), frag, true
	default:
		dest, frag := slug.ResolveLink(current, target)
		return dest, frag, true
	}
}

// IsExternal reports whether target carries a URL scheme such as https:
// or mailto:.
func IsExternal(target string) bool {
	return schemeRe.MatchString(target)
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
