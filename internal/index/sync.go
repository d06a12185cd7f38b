package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/noteprops/internal/metrics"
	"github.com/starford/noteprops/internal/pipeline"
)

// SyncStats counts what one Sync changed.
type SyncStats struct {
	Upserted  int
	Removed   int
	Unchanged int
}

// Sync brings the index up to date with a build:
//   - records whose checksum changed are upserted
//   - indexed paths missing from the build are deleted
//
// A failing document is logged and skipped; the error return is reserved
// for the index itself being unreadable.
func Sync(db DocumentIndex, records []*pipeline.Record, rec metrics.Recorder, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats
	if logger == nil {
		logger = slog.Default()
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	built := make(map[string]struct{}, len(records))
	for _, r := range records {
		built[r.Path] = struct{}{}

		if cs, ok := checksums[r.Path]; ok && cs == r.Checksum {
			stats.Unchanged++
			continue
		}
		row, err := RowFromRecord(r)
		if err != nil {
			logger.Warn("sync: encode failed", slog.String("path", r.Path), slog.String("error", err.Error()))
			continue
		}
		if err := db.UpsertDocument(row, string(r.Body)); err != nil {
			logger.Warn("sync: index failed", slog.String("path", r.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Upserted++
		logger.Debug("sync: indexed", slog.String("path", r.Path))
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := built[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	metrics.OrNoop(rec).IncIndexSync(stats.Upserted, stats.Removed)
	return stats, nil
}

// RowFromRecord converts a processed record into its index row.
func RowFromRecord(r *pipeline.Record) (DocumentRow, error) {
	fm, err := json.Marshal(r.Frontmatter)
	if err != nil {
		return DocumentRow{}, fmt.Errorf("index: encode frontmatter: %w", err)
	}
	props, err := json.Marshal(r.NoteProperties)
	if err != nil {
		return DocumentRow{}, fmt.Errorf("index: encode note properties: %w", err)
	}
	return DocumentRow{
		Path:        r.Path,
		Slug:        r.Slug,
		Title:       r.Title(),
		Checksum:    r.Checksum,
		Tags:        r.Tags(),
		Aliases:     r.Aliases,
		Links:       r.Outgoing,
		Frontmatter: fm,
		Properties:  props,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}
