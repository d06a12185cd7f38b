package docservice

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/noteprops/internal/render"
)

// StaticPrefix is where preview pages expect the panel assets.
const StaticPrefix = "/static/"

const pageTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.Stylesheet}}">
</head>
<body>
<article>
<h1>{{.Title}}</h1>
{{.Panel}}
{{.Body}}
</article>
<script src="{{.Script}}"></script>
<script>
document.dispatchEvent(new CustomEvent("nav"));
if (window.EventSource) {
  const events = new EventSource("/api/events?path=" + encodeURIComponent({{.Path}}));
  events.addEventListener("document.changed", (e) => {
    if (JSON.parse(e.data).path === {{.Path}}) location.reload();
  });
}
</script>
</body>
</html>
`

type page struct {
	Lang       string
	Title      string
	Path       string
	Stylesheet string
	Script     string
	Panel      template.HTML
	Body       template.HTML
}

type previewer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	page     *template.Template
}

func newPreviewer() *previewer {
	return &previewer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
		page:   template.Must(template.New("preview").Parse(pageTemplate)),
	}
}

// Preview renders the document at path as a standalone HTML page: the
// sanitized body with its properties panel above it.
func (s *Service) Preview(_ context.Context, path string) ([]byte, error) {
	r, err := s.record(path)
	if err != nil {
		return nil, err
	}
	panel, err := s.renderPanel(r, "")
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := s.preview.markdown.Convert(r.Body, &body); err != nil {
		return nil, fmt.Errorf("docservice: render markdown %s: %w", path, err)
	}

	var out bytes.Buffer
	err = s.preview.page.Execute(&out, page{
		Lang:       s.cfg.Locale,
		Title:      r.Title(),
		Path:       r.Path,
		Stylesheet: StaticPrefix + render.StylesheetName,
		Script:     StaticPrefix + render.ScriptName,
		Panel:      template.HTML(panel),
		Body:       template.HTML(s.preview.policy.SanitizeBytes(body.Bytes())),
	})
	if err != nil {
		return nil, fmt.Errorf("docservice: preview %s: %w", path, err)
	}
	return out.Bytes(), nil
}
