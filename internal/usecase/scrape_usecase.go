package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/internal/repository"
)

// ScrapeService runs scrapes and keeps their side records.
type ScrapeService interface {
	Scrape(ctx context.Context, indexURL string) (*entity.Dataset, error)
	GetSkipped(ctx context.Context, runID string) ([]entity.SkippedEntity, error)
	GetRun(ctx context.Context, runID string) (*entity.RunReport, error)
}

type scrapeUseCase struct {
	runner Runner
	stores repository.ResultWriters
	ledger repository.SkipLedgerRepository
	logger *zap.Logger
}

// NewScrapeService creates a new ScrapeService. ledger may be nil; stores may be empty.
func NewScrapeService(
	runner Runner,
	stores []repository.ResultWriter,
	ledger repository.SkipLedgerRepository,
	l *zap.Logger,
) ScrapeService {
	if l == nil {
		l = zap.NewNop()
	}
	return &scrapeUseCase{
		runner: runner,
		stores: stores,
		ledger: ledger,
		logger: l,
	}
}

// Scrape runs a full aggregation, records skipped entities in the ledger and
// persists the dataset to every configured store.
func (uc *scrapeUseCase) Scrape(ctx context.Context, indexURL string) (*entity.Dataset, error) {
	ds, err := uc.runner.Run(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	if uc.ledger != nil {
		for _, s := range ds.Report.Skipped {
			if err := uc.ledger.Record(ctx, ds.Report.RunID, s); err != nil {
				// The dataset is complete without it, just log it.
				uc.logger.Warn("Failed to record skipped entity", zap.String("run_id", ds.Report.RunID), zap.String("code", s.Code), zap.Error(err))
			}
		}
	}

	if err := uc.stores.Write(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to persist run %s: %w", ds.Report.RunID, err)
	}

	return ds, nil
}

func (uc *scrapeUseCase) GetSkipped(ctx context.Context, runID string) ([]entity.SkippedEntity, error) {
	if uc.ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return uc.ledger.List(ctx, runID)
}

// GetRun looks the run up in the first configured store that can be queried.
func (uc *scrapeUseCase) GetRun(ctx context.Context, runID string) (*entity.RunReport, error) {
	for _, w := range uc.stores {
		if store, ok := w.(repository.ResultStore); ok {
			return store.FindRun(ctx, runID)
		}
	}
	return nil, ErrRunStoreDisabled
}
