// Package sqlite stores finished scrape runs in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/internal/repository"
)

// ResultStore is a repository.ResultStore backed by SQLite.
type ResultStore struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the database at dbPath, creating parent directories
// and tables as needed.
func Open(dbPath string) (*ResultStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &ResultStore{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *ResultStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

func (s *ResultStore) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		run_id TEXT PRIMARY KEY,
		index_url TEXT NOT NULL,
		requested INTEGER NOT NULL,
		emitted INTEGER NOT NULL,
		columns TEXT NOT NULL,
		skipped TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scrape_rows (
		run_id TEXT NOT NULL REFERENCES scrape_runs(run_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		registered INTEGER NOT NULL,
		issued INTEGER NOT NULL,
		valid INTEGER NOT NULL,
		counts TEXT NOT NULL,
		PRIMARY KEY (run_id, code)
	);

	CREATE INDEX IF NOT EXISTS idx_scrape_rows_code ON scrape_rows(code);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Write stores the run report and its rows in one transaction, replacing an
// earlier copy of the same run.
func (s *ResultStore) Write(ctx context.Context, ds *entity.Dataset) error {
	columns, err := json.Marshal(nonNil(ds.Schema))
	if err != nil {
		return fmt.Errorf("failed to serialize columns: %w", err)
	}
	skipped := ds.Report.Skipped
	if skipped == nil {
		skipped = []entity.SkippedEntity{}
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return fmt.Errorf("failed to serialize skipped entities: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	runID := ds.Report.RunID
	if _, err := tx.ExecContext(ctx, `DELETE FROM scrape_rows WHERE run_id = ?`, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scrape_runs WHERE run_id = ?`, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO scrape_runs (run_id, index_url, requested, emitted, columns, skipped, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		ds.Report.IndexURL,
		ds.Report.Requested,
		ds.Report.Emitted,
		string(columns),
		string(skippedJSON),
		ds.Report.StartedAt.UTC(),
		ds.Report.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO scrape_rows (run_id, position, code, name, registered, issued, valid, counts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range ds.Rows {
		counts := make(map[string]int, len(ds.Schema))
		for _, name := range ds.Schema {
			counts[name] = row.Count(name)
		}
		countsJSON, err := json.Marshal(counts)
		if err != nil {
			return fmt.Errorf("failed to serialize counts of %s: %w", row.Code, err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, i, row.Code, row.Name,
			row.Summary.Registered, row.Summary.Issued, row.Summary.Valid,
			string(countsJSON),
		); err != nil {
			return fmt.Errorf("failed to insert row %s: %w", row.Code, err)
		}
	}

	return tx.Commit()
}

// FindRun returns the report of a stored run.
func (s *ResultStore) FindRun(ctx context.Context, runID string) (*entity.RunReport, error) {
	var (
		report  entity.RunReport
		skipped string
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT run_id, index_url, requested, emitted, skipped, started_at, finished_at
	FROM scrape_runs WHERE run_id = ?`, runID).Scan(
		&report.RunID,
		&report.IndexURL,
		&report.Requested,
		&report.Emitted,
		&skipped,
		&report.StartedAt,
		&report.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", repository.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if err := json.Unmarshal([]byte(skipped), &report.Skipped); err != nil {
		return nil, fmt.Errorf("failed to decode skipped entities: %w", err)
	}
	if len(report.Skipped) == 0 {
		report.Skipped = nil
	}
	return &report, nil
}

// FindRows returns the stored rows of a run in their original order.
func (s *ResultStore) FindRows(ctx context.Context, runID string) ([]entity.OutputRow, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT code, name, registered, issued, valid, counts
	FROM scrape_rows WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	var out []entity.OutputRow
	for rows.Next() {
		var (
			row    entity.OutputRow
			counts string
		)
		if err := rows.Scan(&row.Code, &row.Name, &row.Summary.Registered, &row.Summary.Issued, &row.Summary.Valid, &counts); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &row.Counts); err != nil {
			return nil, fmt.Errorf("failed to decode counts of %s: %w", row.Code, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
