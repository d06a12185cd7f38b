// Package render draws the note properties panel as an HTML tree.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/noteprops/internal/links"
	"github.com/starford/noteprops/internal/slug"
	"github.com/starford/noteprops/internal/value"
	"github.com/starford/noteprops/internal/visibility"
)

const (
	// EmptyGlyph stands in for null values.
	EmptyGlyph = "—"
	separator  = ", "
	tagsKey    = "tags"
)

// Options configure the component for every page.
type Options struct {
	Collapsed bool `yaml:"collapsed" toml:"collapsed" json:"collapsed"`
}

// Props are the per-page inputs.
type Props struct {
	DisplayClass   string
	CurrentSlug    string
	Locale         string
	NoteProperties *visibility.NoteProperties
}

// Component renders the panel. It holds no per-page state and is safe for
// concurrent use.
type Component struct {
	opts Options
}

func New(opts Options) *Component {
	return &Component{opts: opts}
}

// Render returns the panel root, or nil when nothing should be shown.
// The properties mapping is only read.
func (c *Component) Render(p Props) *html.Node {
	np := p.NoteProperties
	if !np.Visible() {
		return nil
	}
	collapsed := np.Collapsed(c.opts.Collapsed)

	details := elem(atom.Details, classNames(p.DisplayClass, "note-properties"))
	details.Attr = append(details.Attr, html.Attribute{Key: "data-collapsed", Val: strconv.FormatBool(collapsed)})
	if !collapsed {
		details.Attr = append(details.Attr, html.Attribute{Key: "open"})
	}

	summary := elem(atom.Summary, "note-properties-header")
	summary.AppendChild(withText(elem(atom.Span, "note-properties-title"), Title(p.Locale)))
	summary.AppendChild(withText(elem(atom.Span, "note-properties-count"), strconv.Itoa(np.Properties.Len())))
	details.AppendChild(summary)

	table := elem(atom.Table, "note-properties-table")
	tbody := elem(atom.Tbody, "")
	r := renderer{current: p.CurrentSlug}
	np.Properties.Range(func(key string, v any) bool {
		row := elem(atom.Tr, "note-properties-row")
		row.AppendChild(withText(elem(atom.Td, "note-properties-key"), key))
		cell := elem(atom.Td, "note-properties-value")
		if key == tagsKey && value.KindOf(v) == value.List {
			cell.AppendChild(r.tags(value.Items(v)))
		} else {
			cell.AppendChild(r.value(v))
		}
		row.AppendChild(cell)
		tbody.AppendChild(row)
		return true
	})
	table.AppendChild(tbody)
	details.AppendChild(table)
	return details
}

// RenderHTML serialises Render's output; suppressed panels yield "".
func (c *Component) RenderHTML(p Props) (string, error) {
	n := c.Render(p)
	if n == nil {
		return "", nil
	}
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return b.String(), nil
}

type renderer struct {
	current string
}

func (r renderer) value(v any) *html.Node {
	switch value.KindOf(v) {
	case value.Null:
		return withText(elem(atom.Span, "note-properties-empty"), EmptyGlyph)
	case value.Bool:
		return checkbox(v.(bool))
	case value.Number:
		return withText(elem(atom.Span, "note-properties-number"), value.Stringify(v))
	case value.String:
		return r.text(v.(string))
	case value.List:
		list := elem(atom.Span, "note-properties-list")
		for i, item := range value.Items(v) {
			if i > 0 {
				list.AppendChild(text(separator))
			}
			list.AppendChild(r.value(item))
		}
		return list
	case value.Map:
		return withText(elem(atom.Code, "note-properties-object"), value.Compact(v))
	}
	return withText(elem(atom.Span, "note-properties-text"), fmt.Sprint(v))
}

func checkbox(b bool) *html.Node {
	state := "is-false"
	if b {
		state = "is-true"
	}
	wrap := elem(atom.Span, classNames("note-properties-boolean", state))
	input := elem(atom.Input, "")
	input.Attr = append(input.Attr, html.Attribute{Key: "type", Val: "checkbox"})
	if b {
		input.Attr = append(input.Attr, html.Attribute{Key: "checked"})
	}
	input.Attr = append(input.Attr, html.Attribute{Key: "disabled"})
	wrap.AppendChild(input)
	return wrap
}

// text renders a string, turning embedded links into anchors and keeping
// the surrounding text in order.
func (r renderer) text(s string) *html.Node {
	span := elem(atom.Span, "note-properties-text")
	pos := 0
	for _, m := range links.Scan(s) {
		if links.Blank(m) {
			continue
		}
		if m.Start > pos {
			span.AppendChild(text(s[pos:m.Start]))
		}
		span.AppendChild(r.link(m))
		pos = m.End
	}
	if pos < len(s) || pos == 0 {
		span.AppendChild(text(s[pos:]))
	}
	return span
}

func (r renderer) link(m links.Match) *html.Node {
	label := m.Text
	if label == "" {
		label = m.Target
	}

	dest, frag, ok := links.Resolve(r.current, m)
	if !ok {
		return external(m.Target, label)
	}
	return internal(r.href(dest, frag), label)
}

func (r renderer) href(dest, frag string) string {
	h := slug.Relative(r.current, dest)
	if frag != "" {
		h += "#" + slug.Anchor(frag)
	}
	return h
}

func (r renderer) tags(items []any) *html.Node {
	list := elem(atom.Span, "note-properties-tags")
	for i, item := range items {
		tag := value.Stringify(item)
		if i > 0 {
			list.AppendChild(text(separator))
		}
		a := withText(elem(atom.A, "internal tag-link"), "#"+tag)
		a.Attr = append(a.Attr, html.Attribute{Key: "href", Val: slug.Relative(r.current, "tags/"+tag)})
		list.AppendChild(a)
	}
	return list
}

func internal(href, label string) *html.Node {
	a := withText(elem(atom.A, "internal note-properties-link"), label)
	a.Attr = append(a.Attr, html.Attribute{Key: "href", Val: href})
	return a
}

func external(href, label string) *html.Node {
	a := withText(elem(atom.A, "external note-properties-link"), label)
	a.Attr = append(a.Attr,
		html.Attribute{Key: "href", Val: href},
		html.Attribute{Key: "target", Val: "_blank"},
		html.Attribute{Key: "rel", Val: "noopener noreferrer"},
	)
	return a
}

func elem(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func withText(n *html.Node, s string) *html.Node {
	n.AppendChild(text(s))
	return n
}

func classNames(names ...string) string {
	var kept []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, " ")
}
