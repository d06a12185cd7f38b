package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/noteprops/internal/apperr"
	"github.com/starford/noteprops/internal/metrics"
	"github.com/starford/noteprops/internal/models"
	"github.com/starford/noteprops/internal/registry"
	"github.com/starford/noteprops/internal/storage"
)

// Failure is a document that could not be processed.
type Failure struct {
	Path    string `json:"path"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (f Failure) Error() string { return f.Message }

func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of one build.
type Result struct {
	BuildID  string
	Records  []*Record
	Registry *registry.Snapshot
	Failures []Failure
	Duration time.Duration
}

// Err joins every per-document failure, or returns nil.
func (r *Result) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Builder processes every document of a source tree in parallel.
type Builder struct {
	src     storage.Provider
	opts    Options
	workers int
	logger  *slog.Logger
	metrics metrics.Recorder
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithWorkers sets the number of concurrent workers (minimum 1).
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) BuilderOption {
	return func(b *Builder) { b.metrics = metrics.OrNoop(r) }
}

func NewBuilder(src storage.Provider, opts Options, options ...BuilderOption) *Builder {
	b := &Builder{
		src:     src,
		opts:    opts,
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
		metrics: metrics.NoopRecorder{},
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// worker owns everything it appends to; nothing is shared until Wait.
type worker struct {
	acc      *registry.Accumulator
	records  []*Record
	failures []Failure
}

// Build processes all documents. A malformed document becomes a Failure and
// does not stop the build; the returned error is reserved for listing
// failures and cancellation.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	files, err := b.src.List("")
	if err != nil {
		return nil, fmt.Errorf("pipeline: list sources: %w", err)
	}

	n := b.workers
	if n > len(files) {
		n = max(len(files), 1)
	}
	workers := make([]*worker, n)

	jobs := make(chan models.FileInfo)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for i := range workers {
		w := &worker{acc: registry.NewAccumulator()}
		workers[i] = w
		g.Go(func() error {
			for f := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				b.processOne(w, f.Path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: build: %w", err)
	}

	// Single-threaded reduction.
	reg := registry.New()
	res := &Result{BuildID: uuid.NewString()}
	for _, w := range workers {
		reg.Merge(w.acc)
		res.Records = append(res.Records, w.records...)
		res.Failures = append(res.Failures, w.failures...)
	}
	sort.Slice(res.Records, func(i, j int) bool { return res.Records[i].Path < res.Records[j].Path })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })
	res.Registry = reg.Snapshot()
	res.Duration = time.Since(start)

	b.metrics.ObserveBuildDuration(res.Duration)
	b.metrics.SetRegistrySize(len(res.Registry.Slugs), len(res.Registry.Links))
	for slug, owners := range res.Registry.Conflicts() {
		b.logger.Warn("pipeline: slug claimed by several documents",
			slog.String("slug", slug), slog.Any("paths", owners))
	}
	b.logger.Info("pipeline: build finished",
		slog.String("build_id", res.BuildID),
		slog.Int("documents", len(res.Records)),
		slog.Int("failures", len(res.Failures)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (b *Builder) processOne(w *worker, path string) {
	data, err := b.src.Read(path)
	if err != nil {
		b.fail(w, path, err, metrics.ResultError)
		return
	}
	rec, err := Process(path, data, b.opts, w.acc)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, apperr.ErrMalformedFrontmatter) {
			result = metrics.ResultMalformed
		}
		b.fail(w, path, err, result)
		return
	}
	w.acc.AddSlugs(path, rec.Slug)
	w.records = append(w.records, rec)
	b.metrics.IncDocument(metrics.ResultOK)
}

func (b *Builder) fail(w *worker, path string, err error, result metrics.Result) {
	b.logger.Warn("pipeline: document failed", slog.String("path", path), slog.String("error", err.Error()))
	w.failures = append(w.failures, Failure{Path: path, Message: err.Error(), Err: err})
	b.metrics.IncDocument(result)
}
