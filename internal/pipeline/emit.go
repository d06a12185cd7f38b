package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/starford/noteprops/internal/apperr"
	"github.com/starford/noteprops/internal/render"
	"github.com/starford/noteprops/internal/storage"
)

// Output file names at the root of the output directory.
const (
	ManifestFile = "_manifest.json"
	RegistryFile = "_registry.json"
	StaticDir    = "static"
)

// Manifest describes one emitted build.
type Manifest struct {
	BuildID     string    `json:"buildId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Documents   int       `json:"documents"`
	Failures    []Failure `json:"failures"`
	Files       []string  `json:"files"`
}

// Emitter writes build results into an output tree.
type Emitter struct {
	out          storage.Provider
	component    *render.Component
	locale       string
	displayClass string
	logger       *slog.Logger
}

// EmitterConfig holds the page-level render settings.
type EmitterConfig struct {
	Locale       string
	DisplayClass string
	Logger       *slog.Logger
}

func NewEmitter(out storage.Provider, component *render.Component, cfg EmitterConfig) *Emitter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		out:          out,
		component:    component,
		locale:       cfg.Locale,
		displayClass: cfg.DisplayClass,
		logger:       logger,
	}
}

// RecordFile is the output path of a record's JSON.
func RecordFile(slug string) string { return outputName(slug) + ".json" }

// PropertiesFile is the output path of a record's rendered panel.
func PropertiesFile(slug string) string { return outputName(slug) + ".properties.html" }

func outputName(slug string) string {
	if slug == "" {
		return "_untitled"
	}
	return slug
}

// Render draws the properties panel of rec with the emitter's settings.
func (e *Emitter) Render(rec *Record) (string, error) {
	return e.component.RenderHTML(render.Props{
		DisplayClass:   e.displayClass,
		CurrentSlug:    rec.Slug,
		Locale:         e.locale,
		NoteProperties: rec.NoteProperties,
	})
}

// Emit writes every record, the registry, static assets and the manifest.
// Files listed by the previous manifest but not produced now are removed.
//
// A record that cannot be encoded or rendered is dropped from res and
// reported in res.Failures. A record whose output name is already taken by
// an earlier path is reported as well but stays in res. The rest of the
// build is still written.
func (e *Emitter) Emit(res *Result) (*Manifest, error) {
	var files []string
	write := func(name string, data []byte) error {
		if err := e.out.Write(name, data); err != nil {
			return fmt.Errorf("pipeline: emit %s: %w", name, err)
		}
		files = append(files, name)
		return nil
	}

	owners := make(map[string]string, len(res.Records))
	kept := make([]*Record, 0, len(res.Records))
	for _, rec := range res.Records {
		name := RecordFile(rec.Slug)
		if owner, taken := owners[name]; taken {
			e.reject(res, rec, fmt.Errorf("pipeline: %s: %w: output %s already written for %s",
				rec.Path, apperr.ErrConflict, name, owner))
			kept = append(kept, rec)
			continue
		}

		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			e.reject(res, rec, fmt.Errorf("pipeline: encode %s: %w", rec.Path, err))
			continue
		}
		panel, err := e.Render(rec)
		if err != nil {
			e.reject(res, rec, fmt.Errorf("pipeline: render %s: %w", rec.Path, err))
			continue
		}

		owners[name] = rec.Path
		kept = append(kept, rec)
		if err := write(name, data); err != nil {
			return nil, err
		}
		if panel == "" {
			continue
		}
		if err := write(PropertiesFile(rec.Slug), []byte(panel)); err != nil {
			return nil, err
		}
	}
	res.Records = kept
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })

	reg, err := json.MarshalIndent(res.Registry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode registry: %w", err)
	}
	if err := write(RegistryFile, reg); err != nil {
		return nil, err
	}
	if err := write(path.Join(StaticDir, render.StylesheetName), []byte(render.Stylesheet)); err != nil {
		return nil, err
	}
	if err := write(path.Join(StaticDir, render.ScriptName), []byte(render.Script)); err != nil {
		return nil, err
	}

	sort.Strings(files)
	m := &Manifest{
		BuildID:     res.BuildID,
		GeneratedAt: time.Now().UTC(),
		Documents:   len(owners),
		Failures:    res.Failures,
		Files:       files,
	}
	if m.Failures == nil {
		m.Failures = []Failure{}
	}

	e.removeStale(files)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode manifest: %w", err)
	}
	if err := e.out.Write(ManifestFile, data); err != nil {
		return nil, fmt.Errorf("pipeline: emit manifest: %w", err)
	}
	return m, nil
}

func (e *Emitter) reject(res *Result, rec *Record, err error) {
	e.logger.Warn("pipeline: document not emitted", slog.String("path", rec.Path), slog.String("error", err.Error()))
	res.Failures = append(res.Failures, Failure{Path: rec.Path, Message: err.Error(), Err: err})
}

// removeStale deletes outputs of the previous build that are not part of
// the current one.
func (e *Emitter) removeStale(current []string) {
	data, err := e.out.Read(ManifestFile)
	if err != nil {
		return
	}
	var prev Manifest
	if err := json.Unmarshal(data, &prev); err != nil {
		e.logger.Warn("pipeline: previous manifest unreadable", slog.String("error", err.Error()))
		return
	}
	keep := make(map[string]struct{}, len(current))
	for _, f := range current {
		keep[f] = struct{}{}
	}
	for _, f := range prev.Files {
		if _, ok := keep[f]; ok {
			continue
		}
		if err := e.out.Delete(f); err != nil {
			e.logger.Warn("pipeline: remove stale output", slog.String("path", f), slog.String("error", err.Error()))
		}
	}
}
