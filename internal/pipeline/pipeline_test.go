package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/noteprops/internal/apperr"
	"github.com/starford/noteprops/internal/registry"
	"github.com/starford/noteprops/internal/render"
	"github.com/starford/noteprops/internal/storage"
)

const richDoc = `---
title: Project Plan
tag: [Planning, planning, Team/Alpha]
alias: [Plan B, roadmap.md]
permalink: plans/current
description: "See [[Roadmap]] and [design](./design.md)"
related:
  - "[[People/Ann|Ann]]"
  - nested: "[x](https://example.com)"
draft: true
---
# Body
`

func TestProcess(t *testing.T) {
	acc := registry.NewAccumulator()
	rec, err := Process("notes/Project Plan.md", []byte(richDoc), DefaultOptions(), acc)
	require.NoError(t, err)

	assert.Equal(t, "notes/Project-Plan", rec.Slug)
	assert.Equal(t, "Project Plan", rec.Title())
	assert.Equal(t, []string{"planning", "team/alpha"}, rec.Tags())
	assert.Equal(t, []string{"Plan-B", "roadmap", "plans/current"}, rec.Aliases)
	assert.Equal(t, []string{"Roadmap", "./design.md", "People/Ann", "https://example.com"}, rec.FrontmatterLinks)
	assert.Equal(t, []string{"People/Ann", "Roadmap", "notes/design"}, rec.Outgoing)
	assert.Equal(t, "# Body\n", string(rec.Body))
	assert.NotEmpty(t, rec.Checksum)

	assert.Equal(t, []string{"title", "tags", "aliases", "permalink", "description", "related", "draft"}, rec.Frontmatter.Keys())
	assert.Equal(t, []string{"description", "tags", "aliases"}, rec.NoteProperties.Properties.Keys())

	reg := registry.New()
	reg.Merge(acc)
	snap := reg.Snapshot()
	assert.Equal(t, []string{"Plan-B", "plans/current", "roadmap"}, snap.Slugs)
	assert.Equal(t, []string{"./design.md", "People/Ann", "Roadmap", "https://example.com"}, snap.Links["notes/Project Plan.md"])
}

func TestProcessNestedLinksInDeclarationOrder(t *testing.T) {
	doc := "---\nmeta:\n  z: \"[[Z]]\"\n  a: \"[[A]]\"\n---\n"
	rec, err := Process("a.md", []byte(doc), DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z", "A"}, rec.FrontmatterLinks)

	b, err := json.Marshal(rec.Frontmatter)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"meta":{"z":"[[Z]]","a":"[[A]]"}`)
}

func TestProcessWithoutFrontmatter(t *testing.T) {
	rec, err := Process("dir/Plain File.md", []byte("just text\n"), DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, rec.Frontmatter.Keys())
	assert.Equal(t, "Plain File", rec.Title())
	assert.Empty(t, rec.Aliases)
	assert.Empty(t, rec.FrontmatterLinks)
	assert.Empty(t, rec.Outgoing)
	assert.Equal(t, 0, rec.NoteProperties.Properties.Len())
}

func TestProcessMalformed(t *testing.T) {
	_, err := Process("bad.md", []byte("---\ntitle: [oops\n---\n"), DefaultOptions(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrMalformedFrontmatter))
	assert.Contains(t, err.Error(), "bad.md")
}

func TestRecordJSON(t *testing.T) {
	rec, err := Process("a.md", []byte("---\ndescription: d\ntitle: A\n---\n"), DefaultOptions(), nil)
	require.NoError(t, err)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"frontmatter":{"description":"d","title":"A"}`)
	assert.Contains(t, s, `"noteProperties":{"properties":{"description":"d"},"hideView":false}`)
	assert.NotContains(t, s, "Body")
}

func newSource(t *testing.T, files map[string]string) *storage.FS {
	t.Helper()
	src, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	for p, content := range files {
		require.NoError(t, src.Write(p, []byte(content)))
	}
	return src
}

func TestBuild(t *testing.T) {
	src := newSource(t, map[string]string{
		"a.md":       "---\naliases: [Alpha]\ndescription: \"[[b]]\"\n---\n",
		"sub/b.md":   "---\ntitle: B\ntags: x\n---\n",
		"broken.md":  "---\ntitle: [\n---\n",
		"notes.txt":  "ignored",
		"c/d/e f.md": "plain",
	})

	res, err := NewBuilder(src, DefaultOptions(), WithWorkers(4)).Build(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, "a.md", res.Records[0].Path)
	assert.Equal(t, "c/d/e f.md", res.Records[1].Path)
	assert.Equal(t, "sub/b.md", res.Records[2].Path)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "broken.md", res.Failures[0].Path)
	assert.ErrorIs(t, res.Err(), apperr.ErrMalformedFrontmatter)

	assert.Equal(t, []string{"Alpha", "a", "c/d/e-f", "sub/b"}, res.Registry.Slugs)
	assert.Equal(t, map[string][]string{"a.md": {"b"}}, res.Registry.Links)
	assert.NotEmpty(t, res.BuildID)
}

func TestBuildCanceled(t *testing.T) {
	src := newSource(t, map[string]string{"a.md": "x", "b.md": "y"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(src, DefaultOptions(), WithWorkers(2)).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmit(t *testing.T) {
	src := newSource(t, map[string]string{
		"a.md": "---\ndescription: shown\n---\n",
		"b.md": "---\ntitle: hidden\n---\n",
	})
	out, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)

	opts := DefaultOptions()
	em := NewEmitter(out, render.New(render.Options{}), EmitterConfig{Locale: "en-US"})

	res, err := NewBuilder(src, opts).Build(context.Background())
	require.NoError(t, err)
	m, err := em.Emit(res)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Documents)
	assert.Equal(t, []string{
		"_registry.json",
		"a.json",
		"a.properties.html",
		"b.json",
		"static/noteProperties.css",
		"static/noteProperties.js",
	}, m.Files)

	panel, err := out.Read("a.properties.html")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(panel), `<details class="note-properties"`))

	var back Record
	data, err := out.Read("b.json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "hidden", back.Title())

	// Removing a source drops its outputs on the next emit.
	require.NoError(t, src.Delete("a.md"))
	res, err = NewBuilder(src, opts).Build(context.Background())
	require.NoError(t, err)
	_, err = em.Emit(res)
	require.NoError(t, err)

	_, err = out.Read("a.json")
	assert.Error(t, err)
	_, err = out.Read("a.properties.html")
	assert.Error(t, err)
	_, err = out.Read(ManifestFile)
	assert.NoError(t, err)
}

func newEmitter(t *testing.T) (*Emitter, *storage.FS) {
	t.Helper()
	out, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	return NewEmitter(out, render.New(render.Options{}), EmitterConfig{Locale: "en-US"}), out
}

func TestEmitNonJSONScalarsStayText(t *testing.T) {
	src := newSource(t, map[string]string{
		"good.md":  "---\ndescription: fine\n---\n",
		"weird.md": "---\nratio: .inf\ncode: 0x1F\ndescription: odd\n---\n",
	})
	res, err := NewBuilder(src, DefaultOptions()).Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Failures)

	em, out := newEmitter(t)
	m, err := em.Emit(res)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Documents)
	assert.Empty(t, m.Failures)

	data, err := out.Read("weird.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ratio": ".inf"`)
	assert.Contains(t, string(data), `"code": "0x1F"`)
}

func TestEmitSkipsUnencodableRecord(t *testing.T) {
	src := newSource(t, map[string]string{
		"good.md": "---\ndescription: fine\n---\n",
		"bad.md":  "---\ndescription: broken later\n---\n",
	})
	res, err := NewBuilder(src, DefaultOptions()).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.Equal(t, "bad.md", res.Records[0].Path)
	res.Records[0].Frontmatter.Set("ratio", math.Inf(1))

	em, out := newEmitter(t)
	m, err := em.Emit(res)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Documents)
	require.Len(t, m.Failures, 1)
	assert.Equal(t, "bad.md", m.Failures[0].Path)
	assert.Contains(t, m.Failures[0].Message, "encode bad.md")
	require.Len(t, res.Records, 1)
	assert.Equal(t, "good.md", res.Records[0].Path)
	assert.Error(t, res.Err())

	for _, name := range []string{"good.json", RegistryFile, ManifestFile, "static/noteProperties.css"} {
		_, err := out.Read(name)
		assert.NoError(t, err, name)
	}
	_, err = out.Read("bad.json")
	assert.Error(t, err)
}

func TestEmitReportsOutputConflicts(t *testing.T) {
	src := newSource(t, map[string]string{
		"A B.md": "---\ndescription: first\n---\n",
		"A-B.md": "---\ndescription: second\n---\n",
	})
	res, err := NewBuilder(src, DefaultOptions()).Build(context.Background())
	require.NoError(t, err)

	em, out := newEmitter(t)
	m, err := em.Emit(res)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Documents)
	require.Len(t, m.Failures, 1)
	assert.Equal(t, "A-B.md", m.Failures[0].Path)
	assert.ErrorIs(t, res.Err(), apperr.ErrConflict)
	assert.Len(t, res.Records, 2)

	data, err := out.Read("A-B.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"path": "A B.md"`)
}
