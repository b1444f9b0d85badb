// Package db is the per-case acquisition ledger: every fetched, kept,
// discarded or failed attachment is recorded in a sqlite file next to the
// downloads. The filesystem stays the source of truth for resume; the
// ledger exists so outcomes can be re-queried and re-printed after a run.
package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Attachment struct {
	Radicado  string
	Name      string
	Kind      string
	Date      string
	Verdict   string
	SizeBytes int64
	Path      string
	FetchedAt time.Time
}

type RunError struct {
	Radicado string
	Item     string
	Date     string
	Message  string
	At       time.Time
}

type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path. Use ":memory:" in
// tests.
func Open(path string) (*Ledger, error) {
	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := sqlite.Exec(Schema); err != nil && !strings.Contains(err.Error(), "already exists") {
		sqlite.Close()
		return nil, err
	}
	return &Ledger{db: sqlite}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) RecordAttachment(ctx context.Context, a Attachment) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO attachments (radicado, name, kind, date, verdict, size_bytes, path, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (radicado, name, kind) DO UPDATE SET
			date = excluded.date,
			verdict = excluded.verdict,
			size_bytes = excluded.size_bytes,
			path = excluded.path,
			fetched_at = excluded.fetched_at`,
		a.Radicado, a.Name, a.Kind, a.Date, a.Verdict, a.SizeBytes, a.Path, a.FetchedAt.Unix(),
	)
	return err
}

func (l *Ledger) RecordError(ctx context.Context, e RunError) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO run_errors (radicado, item, date, message, at)
		VALUES (?, ?, ?, ?, ?)`,
		e.Radicado, e.Item, e.Date, e.Message, e.At.Unix(),
	)
	return err
}

// Attachments returns every recorded outcome for a case in insertion
// order (rowid order, which matches discovery order within a run).
func (l *Ledger) Attachments(ctx context.Context, radicado string) ([]Attachment, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT radicado, name, kind, date, verdict, size_bytes, path, fetched_at
		FROM attachments WHERE radicado = ? ORDER BY rowid`,
		radicado,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		var fetchedAt int64
		err := rows.Scan(&a.Radicado, &a.Name, &a.Kind, &a.Date, &a.Verdict, &a.SizeBytes, &a.Path, &fetchedAt)
		if err != nil {
			return nil, err
		}
		a.FetchedAt = time.Unix(fetchedAt, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Errors returns every recorded error for a case in insertion order.
func (l *Ledger) Errors(ctx context.Context, radicado string) ([]RunError, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT radicado, item, date, message, at
		FROM run_errors WHERE radicado = ? ORDER BY id`,
		radicado,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunError
	for rows.Next() {
		var e RunError
		var at int64
		if err := rows.Scan(&e.Radicado, &e.Item, &e.Date, &e.Message, &at); err != nil {
			return nil, err
		}
		e.At = time.Unix(at, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
