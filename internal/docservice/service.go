// Package docservice coordinates builds, the index, the properties renderer
// and preview pages for the HTTP and MCP surfaces.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/noteprops/internal/apperr"
	"github.com/starford/noteprops/internal/frontmatter"
	"github.com/starford/noteprops/internal/index"
	"github.com/starford/noteprops/internal/metrics"
	"github.com/starford/noteprops/internal/models"
	"github.com/starford/noteprops/internal/pipeline"
	"github.com/starford/noteprops/internal/registry"
	"github.com/starford/noteprops/internal/render"
	"github.com/starford/noteprops/internal/sse"
	"github.com/starford/noteprops/internal/visibility"
	"github.com/starford/noteprops/internal/watch"
)

// DocumentDetail is the full representation of a processed document.
type DocumentDetail struct {
	Path             string                     `json:"path"`
	Slug             string                     `json:"slug"`
	Title            string                     `json:"title"`
	Checksum         string                     `json:"checksum"`
	Tags             []string                   `json:"tags"`
	Aliases          []string                   `json:"aliases"`
	Frontmatter      *frontmatter.Metadata      `json:"frontmatter"`
	NoteProperties   *visibility.NoteProperties `json:"noteProperties"`
	FrontmatterLinks []string                   `json:"frontmatterLinks"`
	Backlinks        []string                   `json:"backlinks"`
}

// Publisher receives document change notifications.
type Publisher interface {
	PublishDocumentChange(sse.DocumentChange)
}

// Config wires a Service.
type Config struct {
	Builder *pipeline.Builder
	// Emitter is optional; without it builds are kept in memory and indexed only.
	Emitter   *pipeline.Emitter
	Index     index.DocumentIndex
	Component *render.Component
	Locale    string
	// DisplayClass is added to every rendered panel.
	DisplayClass string
	Events       Publisher
	Recorder     metrics.Recorder
	Logger       *slog.Logger
}

// Service holds the latest build and answers queries about it.
type Service struct {
	cfg     Config
	logger  *slog.Logger
	preview *previewer

	buildMu sync.Mutex

	mu      sync.RWMutex
	last    *pipeline.Result
	records map[string]*pipeline.Record
}

// New creates a service. Call Rebuild before serving queries.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Component == nil {
		cfg.Component = render.New(render.Options{})
	}
	if cfg.Locale == "" {
		cfg.Locale = render.DefaultLocale
	}
	cfg.Recorder = metrics.OrNoop(cfg.Recorder)
	return &Service{
		cfg:     cfg,
		logger:  logger,
		preview: newPreviewer(),
		records: make(map[string]*pipeline.Record),
	}
}

// Rebuild runs a full build, writes the output, syncs the index and
// announces changes. Builds never overlap.
func (s *Service) Rebuild(ctx context.Context, changes []watch.Change) (*pipeline.Result, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	res, err := s.cfg.Builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	if s.cfg.Emitter != nil {
		if _, err := s.cfg.Emitter.Emit(res); err != nil {
			return nil, err
		}
	}
	if s.cfg.Index != nil {
		stats, err := index.Sync(s.cfg.Index, res.Records, s.cfg.Recorder, s.logger)
		if err != nil {
			return nil, fmt.Errorf("docservice: sync index: %w", err)
		}
		s.logger.Debug("docservice: index synced",
			slog.Int("upserted", stats.Upserted),
			slog.Int("removed", stats.Removed))
	}

	records := make(map[string]*pipeline.Record, len(res.Records))
	for _, r := range res.Records {
		records[r.Path] = r
	}
	s.mu.Lock()
	s.last = res
	s.records = records
	s.mu.Unlock()

	if s.cfg.Events != nil {
		for _, c := range changes {
			s.cfg.Events.PublishDocumentChange(sse.DocumentChange{Kind: c.Kind, Path: c.Path, BuildID: res.BuildID})
		}
	}
	return res, nil
}

// HandleChanges is a watch.Handler that rebuilds after file changes.
func (s *Service) HandleChanges(ctx context.Context, changes []watch.Change) {
	res, err := s.Rebuild(ctx, changes)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("docservice: rebuild failed", slog.String("error", err.Error()))
		}
		return
	}
	s.logger.Info("docservice: rebuilt",
		slog.Int("changes", len(changes)),
		slog.Int("failures", len(res.Failures)))
}

func (s *Service) record(path string) (*pipeline.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[path]
	if !ok {
		return nil, fmt.Errorf("docservice: document %s: %w", path, apperr.ErrNotFound)
	}
	return r, nil
}

// GetDocument returns the processed form of the document at path.
func (s *Service) GetDocument(ctx context.Context, path string) (*DocumentDetail, error) {
	r, err := s.record(path)
	if err != nil {
		return nil, err
	}
	bl, err := s.Backlinks(ctx, path)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		Path:             r.Path,
		Slug:             r.Slug,
		Title:            r.Title(),
		Checksum:         r.Checksum,
		Tags:             r.Tags(),
		Aliases:          nonNilSlice(r.Aliases),
		Frontmatter:      r.Frontmatter,
		NoteProperties:   r.NoteProperties,
		FrontmatterLinks: nonNilSlice(r.FrontmatterLinks),
		Backlinks:        bl,
	}, nil
}

// ListDocuments returns paginated documents with optional tag filter.
func (s *Service) ListDocuments(_ context.Context, limit, offset int, tag string) ([]models.DocumentSummary, int, error) {
	rows, total, err := s.cfg.Index.ListDocuments(limit, offset, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.DocumentSummary, len(rows))
	for i, r := range rows {
		items[i] = models.DocumentSummary{
			Path:      r.Path,
			Slug:      r.Slug,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Backlinks returns the documents whose frontmatter links to the document
// at path, through its slug or any of its aliases.
func (s *Service) Backlinks(_ context.Context, path string) ([]string, error) {
	r, err := s.record(path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, target := range append([]string{r.Slug}, r.Aliases...) {
		sources, err := s.cfg.Index.Backlinks(target)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			seen[src] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for src := range seen {
		out = append(out, src)
	}
	sort.Strings(out)
	return out, nil
}

// ResolveSlug returns every document path claiming slug.
func (s *Service) ResolveSlug(_ context.Context, slug string) ([]string, error) {
	return s.cfg.Index.ResolveSlug(slug)
}

// ResolveDocument maps slug to a single document. A document whose own
// slug matches wins over aliases; several alias owners are a conflict.
func (s *Service) ResolveDocument(ctx context.Context, slug string) (string, error) {
	paths, err := s.ResolveSlug(ctx, slug)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range paths {
		if r, ok := s.records[p]; ok && r.Slug == slug {
			return p, nil
		}
	}
	if len(paths) > 1 {
		return "", fmt.Errorf("docservice: slug %s claimed by %v: %w", slug, paths, apperr.ErrConflict)
	}
	return paths[0], nil
}

// Registry returns the slug registry of the latest build.
func (s *Service) Registry(_ context.Context) *registry.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return &registry.Snapshot{Slugs: []string{}, Owners: map[string][]string{}, Links: map[string][]string{}}
	}
	return s.last.Registry
}

// Failures lists the documents the latest build could not process.
func (s *Service) Failures(_ context.Context) []pipeline.Failure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return []pipeline.Failure{}
	}
	return nonNilSlice(s.last.Failures)
}

// RenderProperties returns the properties panel of the document at path as
// an HTML fragment, or "" when the panel is suppressed. An empty locale
// uses the configured one.
func (s *Service) RenderProperties(_ context.Context, path, locale string) (string, error) {
	r, err := s.record(path)
	if err != nil {
		return "", err
	}
	return s.renderPanel(r, locale)
}

func (s *Service) renderPanel(r *pipeline.Record, locale string) (string, error) {
	if locale == "" {
		locale = s.cfg.Locale
	}
	return s.cfg.Component.RenderHTML(render.Props{
		DisplayClass:   s.cfg.DisplayClass,
		CurrentSlug:    r.Slug,
		Locale:         locale,
		NoteProperties: r.NoteProperties,
	})
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.cfg.Index.Search(query, limit)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
