package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/noteprops/internal/docservice"
	"github.com/starford/noteprops/internal/normalize"
	"github.com/starford/noteprops/internal/pipeline"
	"github.com/starford/noteprops/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	_, src := testutil.TestContent(t, map[string]string{
		"a.md":         "---\ntitle: Alpha\ntag: one, two\nalias: first\ndescription: \"see [[b]]\"\nextra: 1\n---\nsearchable body\n",
		"b.md":         "---\ntitle: Bee\n---\n",
		"quiet.md":     "---\ntitle: Quiet\nshowProperties: false\ndescription: hidden\n---\n",
		"dir/c.md":     "---\ndescription: \"[[first]]\"\n---\n",
		"malformed.md": "---\n: [\n---\n",
	})
	svc := docservice.New(docservice.Config{
		Builder: pipeline.NewBuilder(src, pipeline.DefaultOptions()),
		Index:   testutil.TestDB(t),
	})
	if _, err := svc.Rebuild(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_frontmatter":
		result, err = srv.getFrontmatter(ctx, req)
	case "get_note_properties":
		result, err = srv.getNoteProperties(ctx, req)
	case "render_properties":
		result, err = srv.renderProperties(ctx, req)
	case "resolve_slug":
		result, err = srv.resolveSlug(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetFrontmatter(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_frontmatter", map[string]any{"path": "a.md"})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	text := resultText(r)
	// Field order follows the source; the alias members became canonical fields.
	order := []string{`"title"`, `"tags"`, `"aliases"`, `"description"`, `"extra"`}
	last := -1
	for _, key := range order {
		i := strings.Index(text, key)
		if i <= last {
			t.Fatalf("key %s out of order in %s", key, text)
		}
		last = i
	}
	if strings.Contains(text, `"tag"`) || strings.Contains(text, `"alias"`) {
		t.Errorf("alias members kept: %s", text)
	}
}

func TestGetFrontmatterMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_frontmatter", map[string]any{"path": "nope.md"})
	if !r.IsError || resultText(r) != "not found: nope.md" {
		t.Errorf("missing document = %q", resultText(r))
	}

	r = callTool(t, srv, "get_frontmatter", map[string]any{})
	if !r.IsError {
		t.Error("expected error without path")
	}
}

func TestGetNoteProperties(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_note_properties", map[string]any{"path": "a.md"})

	var np struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &np); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if _, ok := np.Properties["extra"]; ok {
		t.Error("extra should not be visible by default")
	}
	tags, _ := np.Properties["tags"].([]any)
	if len(tags) != 2 || tags[0] != "one" || tags[1] != "two" {
		t.Errorf("tags = %v", np.Properties["tags"])
	}
}

func TestRenderProperties(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "render_properties", map[string]any{"path": "a.md", "locale": "es-ES"})
	if !strings.Contains(resultText(r), "Propiedades") {
		t.Errorf("panel = %s", resultText(r))
	}

	r = callTool(t, srv, "render_properties", map[string]any{"path": "quiet.md"})
	if r.IsError || !strings.Contains(resultText(r), "hidden") {
		t.Errorf("suppressed panel = %q", resultText(r))
	}
}

func TestResolveSlug(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "resolve_slug", map[string]any{"slug": "first"})
	if resultText(r) != "a.md" {
		t.Errorf("resolve first = %q, want a.md", resultText(r))
	}

	r = callTool(t, srv, "resolve_slug", map[string]any{"slug": "dir/c"})
	if resultText(r) != "dir/c.md" {
		t.Errorf("resolve dir/c = %q", resultText(r))
	}

	r = callTool(t, srv, "resolve_slug", map[string]any{"slug": "ghost"})
	if !r.IsError {
		t.Error("expected error for unknown slug")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_backlinks", map[string]any{"path": "a.md"})
	if resultText(r) != "dir/c.md" {
		t.Errorf("backlinks a = %q, want dir/c.md", resultText(r))
	}

	r = callTool(t, srv, "get_backlinks", map[string]any{"path": "b.md"})
	if resultText(r) != "a.md" {
		t.Errorf("backlinks b = %q, want a.md", resultText(r))
	}

	r = callTool(t, srv, "get_backlinks", map[string]any{"path": "quiet.md"})
	if resultText(r) != "no backlinks found" {
		t.Errorf("backlinks quiet = %q", resultText(r))
	}
}

func TestListAndSearch(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_documents", map[string]any{"tag": "two"})
	var list struct {
		Documents []struct {
			Path string `json:"path"`
		} `json:"documents"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Documents[0].Path != "a.md" {
		t.Errorf("list = %+v", list)
	}

	r = callTool(t, srv, "search_documents", map[string]any{"query": "searchable"})
	if !strings.Contains(resultText(r), `"a.md"`) {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestFrontmatterSchema(t *testing.T) {
	schema := FrontmatterSchema()
	for _, g := range normalize.Groups {
		if !strings.Contains(schema, "| `"+g.Canonical+"` |") {
			t.Errorf("schema missing group %s", g.Canonical)
		}
	}
	if !strings.Contains(schema, "`lastmod`") {
		t.Error("schema missing accepted key lastmod")
	}

	srv := testServer(t)
	contents, err := srv.readSchemaResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != SchemaURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
