// Package watch turns file-system events under a content root into
// debounced batches of document changes.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change kinds.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Change is one document that changed on disk. Path is relative to the
// watched root and uses forward slashes.
type Change struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// Handler receives a batch of changes, sorted by path.
type Handler func(ctx context.Context, changes []Change)

// Watcher watches a directory tree for markdown changes.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

func New(root string, opts ...Option) *Watcher {
	w := &Watcher{root: root, debounce: DefaultDebounce, logger: slog.Default()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run processes events until ctx is cancelled, calling fn once per quiet
// period with everything that changed since the previous call.
//
// New directories created at runtime are added to the watch list and the
// markdown files already inside them are reported as created. fsnotify
// reports a rename on the old path only; it becomes a deletion and the new
// path arrives as a create.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	pending := make(map[string]string)
	var timer *time.Timer
	var fire <-chan time.Time

	record := func(kind, abs string) {
		rel, err := filepath.Rel(w.root, abs)
		if err != nil {
			return
		}
		rel = filepath.ToSlash(rel)
		// A create followed by writes is still a create.
		if prev, ok := pending[rel]; ok && prev == Created && kind == Updated {
			return
		}
		pending[rel] = kind
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-fire:
			batch := make([]Change, 0, len(pending))
			for p, kind := range pending {
				batch = append(batch, Change{Kind: kind, Path: p})
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			pending = make(map[string]string)
			w.logger.Debug("watcher: batch", slog.Int("changes", len(batch)))
			fn(ctx, batch)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					if isHidden(info.Name()) {
						continue
					}
					if addErr := addDirsRecursive(fw, abs); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", abs),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", abs))
					}
					walkMarkdown(abs, func(p string) { record(Created, p) })
					continue
				}
			}

			if !isMarkdown(abs) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				record(Created, abs)
			case ev.Op&fsnotify.Write != 0:
				record(Updated, abs)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				record(Deleted, abs)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func isMarkdown(p string) bool {
	return strings.HasSuffix(p, ".md") && !isHidden(filepath.Base(p))
}

func isHidden(name string) bool { return strings.HasPrefix(name, ".") }

func walkMarkdown(dir string, fn func(string)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isMarkdown(p) {
			fn(p)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
