package repository

import (
	"context"
	"errors"

	"github.com/user/election-scraper/internal/entity"
)

// ResultWriter defines the contract for emitting a finished dataset:
// the header followed by one row per municipality.
type ResultWriter interface {
	Write(ctx context.Context, ds *entity.Dataset) error
}

// ResultStore persists finished runs for later querying.
type ResultStore interface {
	ResultWriter
	// FindRun returns the report of a stored run.
	FindRun(ctx context.Context, runID string) (*entity.RunReport, error)
}

// ResultWriters fans a dataset out to several writers in order, stopping at
// the first error.
type ResultWriters []ResultWriter

func (w ResultWriters) Write(ctx context.Context, ds *entity.Dataset) error {
	for _, writer := range w {
		if err := writer.Write(ctx, ds); err != nil {
			return err
		}
	}
	return nil
}

// ErrRunNotFound is returned by FindRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")
