package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested record doesn't exist.
var ErrNotFound = errors.New("not found")

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Document is one stored calendar file.
type Document struct {
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	Body      []byte    `json:"-"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImportRun is one entry of the import log.
type ImportRun struct {
	ID             int64     `json:"id"`
	Source         string    `json:"source"`
	DatasetVersion *string   `json:"dataset_version,omitempty"`
	Documents      int       `json:"documents"`
	Success        bool      `json:"success"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	DurationMs     *int64    `json:"duration_ms,omitempty"`
	ImportedAt     time.Time `json:"imported_at"`
}

// FormatOf derives the stored format from a document path.
func FormatOf(p string) (string, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("unsupported document type %q", p)
}

// parseTimestamp reads SQLite's datetime('now') text.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// =============================================================================
// Documents
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putDocument(ctx context.Context, ex execer, p string, body []byte) error {
	format, err := FormatOf(p)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO calendar_documents (path, format, body, size, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(path) DO UPDATE SET
			format = excluded.format,
			body = excluded.body,
			size = excluded.size,
			updated_at = datetime('now')`,
		p, format, body, len(body),
	)
	if err != nil {
		return fmt.Errorf("put document %s: %w", p, err)
	}
	return nil
}

// PutDocument inserts or replaces the document stored at p.
func (db *DB) PutDocument(ctx context.Context, p string, body []byte) error {
	return putDocument(ctx, db, p, body)
}

// PutDocument is PutDocument inside a transaction.
func (tx *Tx) PutDocument(ctx context.Context, p string, body []byte) error {
	return putDocument(ctx, tx, p, body)
}

// GetDocument returns the document at p, or ErrNotFound.
func (db *DB) GetDocument(ctx context.Context, p string) (*Document, error) {
	var (
		doc     Document
		updated string
	)
	err := db.QueryRowContext(ctx,
		`SELECT path, format, body, size, updated_at FROM calendar_documents WHERE path = ?`, p,
	).Scan(&doc.Path, &doc.Format, &doc.Body, &doc.Size, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", p, err)
	}
	doc.UpdatedAt = parseTimestamp(updated)
	return &doc, nil
}

// Fetch returns the body stored at p. It lets the liturgy engine load its
// calendar straight from the database.
func (db *DB) Fetch(ctx context.Context, p string) ([]byte, error) {
	doc, err := db.GetDocument(ctx, strings.TrimPrefix(p, "/"))
	if err != nil {
		return nil, err
	}
	return doc.Body, nil
}

// ListDocuments returns every document without its body, ordered by path.
func (db *DB) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT path, format, size, updated_at FROM calendar_documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc     Document
			updated string
		)
		if err := rows.Scan(&doc.Path, &doc.Format, &doc.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		doc.UpdatedAt = parseTimestamp(updated)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes the document at p. Returns ErrNotFound if there
// was none.
func (db *DB) DeleteDocument(ctx context.Context, p string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM calendar_documents WHERE path = ?`, p)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", p, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceDocuments swaps the stored calendar for docs in one transaction,
// removing paths that are not in docs.
func (db *DB) ReplaceDocuments(ctx context.Context, docs map[string][]byte) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_documents`); err != nil {
			return fmt.Errorf("clear documents: %w", err)
		}
		for p, body := range docs {
			if err := tx.PutDocument(ctx, p, body); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// Import log
// =============================================================================

// LogImport records an import run.
func (db *DB) LogImport(ctx context.Context, run *ImportRun) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO import_runs (source, dataset_version, documents, success, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.Source, run.DatasetVersion, run.Documents, run.Success, run.ErrorMessage, run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("log import: %w", err)
	}
	run.ID, _ = res.LastInsertId()
	return nil
}

// RecentImports returns the latest import runs, newest first.
func (db *DB) RecentImports(ctx context.Context, limit int) ([]ImportRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, source, dataset_version, documents, success, error_message, duration_ms, imported_at
		FROM import_runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var (
			run        ImportRun
			version    sql.NullString
			errMsg     sql.NullString
			durationMs sql.NullInt64
			importedAt string
		)
		if err := rows.Scan(&run.ID, &run.Source, &version, &run.Documents, &run.Success,
			&errMsg, &durationMs, &importedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		if version.Valid {
			run.DatasetVersion = &version.String
		}
		if errMsg.Valid {
			run.ErrorMessage = &errMsg.String
		}
		if durationMs.Valid {
			run.DurationMs = &durationMs.Int64
		}
		run.ImportedAt = parseTimestamp(importedAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import runs: %w", err)
	}
	return runs, nil
}
