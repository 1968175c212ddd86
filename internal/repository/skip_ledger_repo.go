package repository

import (
	"context"

	"github.com/user/election-scraper/internal/entity"
)

// SkipLedgerRepository records municipalities whose detail page could not be fetched.
type SkipLedgerRepository interface {
	// Record stores a skipped entity under its run.
	Record(ctx context.Context, runID string, skipped entity.SkippedEntity) error
	// List returns the skipped entities of a run, ordered by code.
	List(ctx context.Context, runID string) ([]entity.SkippedEntity, error)
}
