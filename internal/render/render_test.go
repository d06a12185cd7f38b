package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/starford/noteprops/internal/frontmatter"
	"github.com/starford/noteprops/internal/visibility"
)

func props(kv ...any) *frontmatter.Metadata {
	md := frontmatter.NewMetadata()
	for i := 0; i+1 < len(kv); i += 2 {
		md.Set(kv[i].(string), kv[i+1])
	}
	return md
}

func renderOne(t *testing.T, current string, md *frontmatter.Metadata) string {
	t.Helper()
	out, err := New(Options{}).RenderHTML(Props{
		CurrentSlug:    current,
		NoteProperties: &visibility.NoteProperties{Properties: md},
	})
	require.NoError(t, err)
	return out
}

func TestRenderFullPanel(t *testing.T) {
	out := renderOne(t, "page", props("draft", true))
	want := `<details class="note-properties" data-collapsed="false" open="">` +
		`<summary class="note-properties-header">` +
		`<span class="note-properties-title">Properties</span>` +
		`<span class="note-properties-count">1</span>` +
		`</summary>` +
		`<table class="note-properties-table"><tbody>` +
		`<tr class="note-properties-row">` +
		`<td class="note-properties-key">draft</td>` +
		`<td class="note-properties-value"><span class="note-properties-boolean is-true"><input type="checkbox" checked="" disabled=""/></span></td>` +
		`</tr></tbody></table></details>`
	assert.Equal(t, want, out)
}

func TestRenderBooleans(t *testing.T) {
	out := renderOne(t, "page", props("yes", true, "no", false))
	assert.Contains(t, out, `<span class="note-properties-boolean is-true"><input type="checkbox" checked="" disabled=""/></span>`)
	assert.Contains(t, out, `<span class="note-properties-boolean is-false"><input type="checkbox" disabled=""/></span>`)
}

func TestRenderScalars(t *testing.T) {
	out := renderOne(t, "page", props("n", int64(3), "f", 1.5, "none", nil, "s", "plain <b>"))
	assert.Contains(t, out, `<span class="note-properties-number">3</span>`)
	assert.Contains(t, out, `<span class="note-properties-number">1.5</span>`)
	assert.Contains(t, out, `<span class="note-properties-empty">—</span>`)
	assert.Contains(t, out, `<span class="note-properties-text">plain &lt;b&gt;</span>`)
}

func TestRenderStringLinks(t *testing.T) {
	out := renderOne(t, "notes/page", props("related", "see [[Other Page|Other]] and [docs](https://go.dev) at https://x.test."))
	want := `<span class="note-properties-text">see ` +
		`<a class="internal note-properties-link" href="../Other-Page">Other</a> and ` +
		`<a class="external note-properties-link" href="https://go.dev" target="_blank" rel="noopener noreferrer">docs</a> at ` +
		`<a class="external note-properties-link" href="https://x.test" target="_blank" rel="noopener noreferrer">https://x.test</a>.` +
		`</span>`
	assert.Contains(t, out, want)
}

func TestRenderRelativeMarkdownLink(t *testing.T) {
	out := renderOne(t, "notes/page", props("ref", "[b](./b.md#Some Section)", "up", "[[Top#Intro]]"))
	assert.Contains(t, out, `<a class="internal note-properties-link" href="../notes/b#some-section">b</a>`)
	assert.Contains(t, out, `<a class="internal note-properties-link" href="../Top#intro">Top#Intro</a>`)
}

func TestRenderListAndMap(t *testing.T) {
	out := renderOne(t, "page", props(
		"list", []any{"a", int64(2), nil},
		"obj", map[string]any{"k": "v", "n": int64(1)},
	))
	assert.Contains(t, out, `<span class="note-properties-list">`+
		`<span class="note-properties-text">a</span>, `+
		`<span class="note-properties-number">2</span>, `+
		`<span class="note-properties-empty">—</span></span>`)
	assert.Contains(t, out, `<code class="note-properties-object">`)
	assert.Contains(t, html.UnescapeString(out), `{"k":"v","n":1}`)
}

func TestRenderTags(t *testing.T) {
	out := renderOne(t, "notes/page", props("tags", []string{"foo", "bar/baz"}))
	assert.Contains(t, out, `<span class="note-properties-tags">`+
		`<a class="internal tag-link" href="../tags/foo">#foo</a>, `+
		`<a class="internal tag-link" href="../tags/bar/baz">#bar/baz</a></span>`)

	out = renderOne(t, "page", props("tags", "not-a-list"))
	assert.NotContains(t, out, "tag-link")
	assert.Contains(t, out, `<span class="note-properties-text">not-a-list</span>`)
}

func TestRenderSuppression(t *testing.T) {
	yes, no := true, false
	c := New(Options{})

	tests := []struct {
		name    string
		np      *visibility.NoteProperties
		visible bool
	}{
		{"empty", &visibility.NoteProperties{Properties: frontmatter.NewMetadata()}, false},
		{"nil", nil, false},
		{"hidden", &visibility.NoteProperties{Properties: props("a", 1), HideView: true}, false},
		{"forced off", &visibility.NoteProperties{Properties: props("a", 1), ShowProperties: &no}, false},
		{"forced on", &visibility.NoteProperties{Properties: props("a", 1), HideView: true, ShowProperties: &yes}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Props{CurrentSlug: "page", NoteProperties: tt.np}
			node := c.Render(p)
			out, err := c.RenderHTML(p)
			require.NoError(t, err)
			if tt.visible {
				assert.NotNil(t, node)
				assert.True(t, strings.HasPrefix(out, "<details"))
			} else {
				assert.Nil(t, node)
				assert.Empty(t, out)
			}
		})
	}
}

func TestRenderCollapsed(t *testing.T) {
	yes, no := true, false
	md := props("a", 1)

	out, err := New(Options{Collapsed: true}).RenderHTML(Props{NoteProperties: &visibility.NoteProperties{Properties: md}})
	require.NoError(t, err)
	assert.Contains(t, out, `data-collapsed="true"`)
	assert.NotContains(t, out, `open=""`)

	out, err = New(Options{Collapsed: true}).RenderHTML(Props{NoteProperties: &visibility.NoteProperties{Properties: md, CollapseProperties: &no}})
	require.NoError(t, err)
	assert.Contains(t, out, `open=""`)

	out, err = New(Options{}).RenderHTML(Props{NoteProperties: &visibility.NoteProperties{Properties: md, CollapseProperties: &yes}})
	require.NoError(t, err)
	assert.NotContains(t, out, `open=""`)
}

func TestRenderDisplayClassAndLocale(t *testing.T) {
	out, err := New(Options{}).RenderHTML(Props{
		DisplayClass:   "desktop-only",
		Locale:         "de-DE",
		NoteProperties: &visibility.NoteProperties{Properties: props("a", 1, "b", 2)},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `<details class="desktop-only note-properties"`)
	assert.Contains(t, out, `<span class="note-properties-title">Eigenschaften</span>`)
	assert.Contains(t, out, `<span class="note-properties-count">2</span>`)
}

func TestRenderDoesNotMutate(t *testing.T) {
	md := props("tags", []string{"x"}, "list", []any{"a", map[string]any{"k": "v"}}, "s", "[[L]]")
	before, err := json.Marshal(md)
	require.NoError(t, err)

	_ = renderOne(t, "page", md)

	after, err := json.Marshal(md)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestTitleLocales(t *testing.T) {
	assert.Equal(t, "Properties", Title("en-US"))
	assert.Equal(t, "Eigenschaften", Title("de-DE"))
	assert.Equal(t, "Eigenschaften", Title("de"))
	assert.Equal(t, "Propriétés", Title("fr-FR"))
	assert.Equal(t, "プロパティ", Title("ja-JP"))
	assert.Equal(t, "Properties", Title(""))
	assert.Equal(t, "Properties", Title("not a locale"))
	assert.Len(t, Locales(), 12)
}

func TestAssetsEmbedded(t *testing.T) {
	assert.Contains(t, Script, CollapseStorageKey)
	assert.Contains(t, Script, `addEventListener("nav"`)
	assert.Contains(t, Script, "removeEventListener")
	assert.Contains(t, Stylesheet, ".note-properties")
}
