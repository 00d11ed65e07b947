// Package scorecard is the SQLite-backed ledger the batch-submission CLI
// consults and updates: one row per source tarball's outcome, plus the set
// of filenames "touched" (already harvested) across a scorecard run.
package scorecard

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS score (
	source TEXT PRIMARY KEY,
	outcome TEXT,
	arxivfiles TEXT,
	clsfiles TEXT,
	styfiles TEXT,
	pdf TEXT,
	pdfchecksum TEXT,
	nrpages INTEGER,
	removed_unused_files TEXT,
	status INTEGER,
	success INTEGER
);
CREATE TABLE IF NOT EXISTS touched (
	filename TEXT PRIMARY KEY
);
`

// Score is one row of the score table.
type Score struct {
	Source              string
	Outcome             string
	ArxivFiles          string
	ClsFiles            string
	StyFiles            string
	PDF                 string
	PDFChecksum         string
	NrPages             int
	RemovedUnusedFiles  string
	Status              int
	Success             bool
}

// DB wraps a *sql.DB opened against a SQLite scorecard file. The batch CLI
// opens one DB per pass and shares it across all of its workers; workers do
// not get connections of their own, and Open caps the pool at a single
// connection, so their writes are serialized.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the scorecard database at path and
// ensures its schema exists.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("scorecard: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // one connection shared by all callers, serialized writes
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("scorecard: create schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// UpsertScore writes s inside its own BEGIN/COMMIT, per §5's "explicit
// BEGIN/COMMIT around each upsert".
func (db *DB) UpsertScore(ctx context.Context, s Score) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("scorecard: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO score (source, outcome, arxivfiles, clsfiles, styfiles, pdf, pdfchecksum, nrpages, removed_unused_files, status, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			outcome=excluded.outcome, arxivfiles=excluded.arxivfiles, clsfiles=excluded.clsfiles,
			styfiles=excluded.styfiles, pdf=excluded.pdf, pdfchecksum=excluded.pdfchecksum,
			nrpages=excluded.nrpages, removed_unused_files=excluded.removed_unused_files,
			status=excluded.status, success=excluded.success`,
		s.Source, s.Outcome, s.ArxivFiles, s.ClsFiles, s.StyFiles, s.PDF, s.PDFChecksum,
		s.NrPages, s.RemovedUnusedFiles, s.Status, boolToInt(s.Success))
	if err != nil {
		return fmt.Errorf("scorecard: upsert score: %w", err)
	}

	return tx.Commit()
}

// GetScore fetches a row by source, returning (nil, nil) when absent.
func (db *DB) GetScore(ctx context.Context, source string) (*Score, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT source, outcome, arxivfiles, clsfiles, styfiles, pdf, pdfchecksum, nrpages, removed_unused_files, status, success
		FROM score WHERE source = ?`, source)

	var s Score
	var success int
	if err := row.Scan(&s.Source, &s.Outcome, &s.ArxivFiles, &s.ClsFiles, &s.StyFiles, &s.PDF, &s.PDFChecksum,
		&s.NrPages, &s.RemovedUnusedFiles, &s.Status, &success); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scorecard: get score: %w", err)
	}
	s.Success = success != 0
	return &s, nil
}

// MarkTouched records filename as harvested within its own transaction.
func (db *DB) MarkTouched(ctx context.Context, filename string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("scorecard: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO touched (filename) VALUES (?)`, filename); err != nil {
		return fmt.Errorf("scorecard: mark touched: %w", err)
	}
	return tx.Commit()
}

// IsTouched reports whether filename has already been harvested.
func (db *DB) IsTouched(ctx context.Context, filename string) (bool, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT 1 FROM touched WHERE filename = ?`, filename)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("scorecard: is touched: %w", err)
	}
	return true, nil
}

// PurgeFailed removes score rows where success=0, for the CLI's
// --purge-failed flag.
func (db *DB) PurgeFailed(ctx context.Context) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("scorecard: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM score WHERE success = 0`)
	if err != nil {
		return 0, fmt.Errorf("scorecard: purge failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
