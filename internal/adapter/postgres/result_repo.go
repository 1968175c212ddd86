package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/internal/repository"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	run_id      TEXT PRIMARY KEY,
	index_url   TEXT NOT NULL,
	requested   INTEGER NOT NULL,
	emitted     INTEGER NOT NULL,
	columns     JSONB NOT NULL,
	skipped     JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS scrape_rows (
	run_id     TEXT NOT NULL REFERENCES scrape_runs(run_id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	code       TEXT NOT NULL,
	name       TEXT NOT NULL,
	registered INTEGER NOT NULL,
	issued     INTEGER NOT NULL,
	valid      INTEGER NOT NULL,
	counts     JSONB NOT NULL,
	PRIMARY KEY (run_id, code)
);`

// ResultRepo stores finished runs in PostgreSQL.
type ResultRepo struct {
	db *pgxpool.Pool
}

// NewResultRepo creates a new instance of ResultRepo.
func NewResultRepo(db *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (r *ResultRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schemaDDL)
	return err
}

// Write stores the run report and every row in one transaction. Writing the
// same run twice replaces it.
func (r *ResultRepo) Write(ctx context.Context, ds *entity.Dataset) error {
	run, err := encodeRun(ds)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM scrape_runs WHERE run_id = $1`, ds.Report.RunID)
	batch.Queue(`
		INSERT INTO scrape_runs (run_id, index_url, requested, emitted, columns, skipped, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ds.Report.RunID,
		ds.Report.IndexURL,
		ds.Report.Requested,
		ds.Report.Emitted,
		run.columns,
		run.skipped,
		ds.Report.StartedAt,
		ds.Report.FinishedAt,
	)
	for i, row := range ds.Rows {
		batch.Queue(`
			INSERT INTO scrape_rows (run_id, position, code, name, registered, issued, valid, counts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			ds.Report.RunID,
			i,
			row.Code,
			row.Name,
			row.Summary.Registered,
			row.Summary.Issued,
			row.Summary.Valid,
			run.counts[i],
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store run %s: %w", ds.Report.RunID, err)
	}
	return tx.Commit(ctx)
}

// FindRun retrieves the report of a stored run.
func (r *ResultRepo) FindRun(ctx context.Context, runID string) (*entity.RunReport, error) {
	query := `
		SELECT run_id, index_url, requested, emitted, skipped, started_at, finished_at
		FROM scrape_runs
		WHERE run_id = $1;
	`
	var (
		report      entity.RunReport
		skippedJSON []byte
	)
	err := r.db.QueryRow(ctx, query, runID).Scan(
		&report.RunID,
		&report.IndexURL,
		&report.Requested,
		&report.Emitted,
		&skippedJSON,
		&report.StartedAt,
		&report.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", repository.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skippedJSON, &report.Skipped); err != nil {
		return nil, err
	}
	return &report, nil
}

// encodedRun holds the JSONB payloads of one dataset.
type encodedRun struct {
	columns []byte
	skipped []byte
	counts  [][]byte
}

// encodeRun serializes the schema, skipped entities and the full count map of
// every row, zeros included, so that stored rows line up with the columns.
func encodeRun(ds *entity.Dataset) (*encodedRun, error) {
	columns := ds.Schema
	if columns == nil {
		columns = []string{}
	}
	skipped := ds.Report.Skipped
	if skipped == nil {
		skipped = []entity.SkippedEntity{}
	}

	run := &encodedRun{counts: make([][]byte, len(ds.Rows))}
	var err error
	if run.columns, err = json.Marshal(columns); err != nil {
		return nil, fmt.Errorf("failed to serialize columns: %w", err)
	}
	if run.skipped, err = json.Marshal(skipped); err != nil {
		return nil, fmt.Errorf("failed to serialize skipped entities: %w", err)
	}
	for i, row := range ds.Rows {
		counts := make(map[string]int, len(ds.Schema))
		for _, name := range ds.Schema {
			counts[name] = row.Count(name)
		}
		if run.counts[i], err = json.Marshal(counts); err != nil {
			return nil, fmt.Errorf("failed to serialize counts of %s: %w", row.Code, err)
		}
	}
	return run, nil
}
