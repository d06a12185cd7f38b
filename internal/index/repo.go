package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/noteprops/internal/apperr"
)

// DocumentRow represents a row in the documents table together with its
// aliases and outgoing frontmatter links.
type DocumentRow struct {
	Path     string
	Slug     string
	Title    string
	Checksum string
	Tags     []string
	Aliases  []string
	Links    []string
	// Frontmatter and Properties are stored as JSON objects.
	Frontmatter json.RawMessage
	Properties  json.RawMessage
	UpdatedAt   time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertDocument inserts or replaces a document, its FTS entry, aliases
// and links within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO documents (path, slug, title, checksum, tags, frontmatter, properties, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			slug        = excluded.slug,
			title       = excluded.title,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			frontmatter = excluded.frontmatter,
			properties  = excluded.properties,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, d.Path, d.Slug, d.Title, d.Checksum, string(tagsJSON),
		jsonOrEmpty(d.Frontmatter), jsonOrEmpty(d.Properties), body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d, body); err != nil {
		return err
	}

	if err := replaceSet(tx, `aliases`, `alias`, `path`, d.Path, d.Aliases); err != nil {
		return err
	}
	if err := replaceSet(tx, `links`, `target`, `source`, d.Path, d.Links); err != nil {
		return err
	}

	return tx.Commit()
}

// replaceSet deletes the rows owned by path in table and bulk-inserts values.
func replaceSet(tx *sql.Tx, table, col, owner, path string, values []string) error {
	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE `+owner+` = ?`, path); err != nil {
		return fmt.Errorf("index: clear %s: %w", table, err)
	}
	if len(values) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO ` + table + ` (` + owner + `, ` + col + `) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare %s insert: %w", table, err)
	}
	defer stmt.Close()
	for _, v := range values {
		if _, err := stmt.Exec(path, v); err != nil {
			return fmt.Errorf("index: insert %s: %w", table, err)
		}
	}
	return nil
}

func jsonOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

// DeleteDocument removes a document, its FTS entry, aliases and links.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM aliases WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums maps every indexed path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const documentColumns = `path, slug, title, checksum, tags, frontmatter, properties, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*DocumentRow, error) {
	var (
		d               DocumentRow
		tags, fm, props string
	)
	if err := s.Scan(&d.Path, &d.Slug, &d.Title, &d.Checksum, &tags, &fm, &props, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return nil, fmt.Errorf("index: decode tags of %s: %w", d.Path, err)
	}
	d.Frontmatter = json.RawMessage(fm)
	d.Properties = json.RawMessage(props)
	return &d, nil
}

// GetDocument loads one document with its aliases and links.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	if d.Aliases, err = db.column(`SELECT alias FROM aliases WHERE path = ? ORDER BY alias`, path); err != nil {
		return nil, err
	}
	if d.Links, err = db.column(`SELECT target FROM links WHERE source = ? ORDER BY target`, path); err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns a page of documents ordered by path and the total
// count. A non-empty tag restricts the listing to documents carrying it.
func (db *DB) ListDocuments(limit, offset int, tag string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if tag != "" {
		where = ` WHERE EXISTS (SELECT 1 FROM json_each(documents.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+documentColumns+` FROM documents`+where+` ORDER BY path LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	out := []DocumentRow{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// ResolveSlug returns the paths of documents whose slug or alias is slug.
func (db *DB) ResolveSlug(slug string) ([]string, error) {
	paths, err := db.column(`
		SELECT path FROM documents WHERE slug = ?
		UNION
		SELECT path FROM aliases WHERE alias = ?
		ORDER BY path
	`, slug, slug)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("index: slug %s: %w", slug, apperr.ErrNotFound)
	}
	return paths, nil
}

// Backlinks returns all document paths whose frontmatter links to target.
func (db *DB) Backlinks(target string) ([]string, error) {
	out, err := db.column(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	return out, nil
}

func (db *DB) column(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
