package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/internal/extractor"
	"github.com/user/election-scraper/internal/repository"
	"github.com/user/election-scraper/pkg/metrics"
)

// Runner produces the consolidated dataset for one index page.
type Runner interface {
	Run(ctx context.Context, indexURL string) (*entity.Dataset, error)
}

// Aggregator walks an index page and its detail pages sequentially and folds
// them into one dataset. The schema and rows of a run live only inside Run.
type Aggregator struct {
	fetcher repository.Fetcher
	index   *extractor.IndexParser
	detail  *extractor.DetailParser
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewAggregator creates a new Aggregator. m may be nil.
func NewAggregator(
	fetcher repository.Fetcher,
	index *extractor.IndexParser,
	detail *extractor.DetailParser,
	m *metrics.Metrics,
	l *zap.Logger,
) *Aggregator {
	if l == nil {
		l = zap.NewNop()
	}
	return &Aggregator{
		fetcher: fetcher,
		index:   index,
		detail:  detail,
		metrics: m,
		logger:  l,
		now:     time.Now,
	}
}

// Run fetches indexURL, then every detail page it links to, in order.
// An unreachable or empty index page returns a *FatalSourceError and no
// dataset. A detail page that cannot be fetched only drops that entity.
func (a *Aggregator) Run(ctx context.Context, indexURL string) (*entity.Dataset, error) {
	report := entity.RunReport{
		RunID:     uuid.NewString(),
		IndexURL:  indexURL,
		StartedAt: a.now(),
	}
	logger := a.logger.With(zap.String("run_id", report.RunID))
	logger.Info("Starting run", zap.String("index_url", indexURL))

	indexHTML, err := a.fetch(ctx, "index", indexURL)
	if err != nil {
		logger.Error("Index page fetch failed", zap.String("url", indexURL), zap.Error(err))
		a.metrics.FinishRun("failure", 0)
		return nil, &FatalSourceError{URL: indexURL, Reason: ErrSourceUnreachable, Cause: err}
	}

	refs := a.index.Parse(indexHTML)
	if len(refs) == 0 {
		logger.Error("Index page lists no entities", zap.String("url", indexURL))
		a.metrics.FinishRun("failure", 0)
		return nil, &FatalSourceError{URL: indexURL, Reason: ErrNoEntities}
	}
	report.Requested = len(refs)
	logger.Info("Index page parsed", zap.Int("entities", len(refs)))

	schema := entity.NewSchema()
	rows := make([]entity.OutputRow, 0, len(refs))
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			a.metrics.FinishRun("cancelled", 0)
			return nil, fmt.Errorf("run %s cancelled after %d of %d entities: %w", report.RunID, i, len(refs), err)
		}

		detailHTML, err := a.fetch(ctx, "detail", ref.DetailURL)
		if err != nil {
			skip := &SkippedEntityError{Ref: ref, Err: err}
			logger.Warn("Skipping entity", zap.String("code", ref.Code), zap.String("url", ref.DetailURL), zap.Error(err))
			report.Skipped = append(report.Skipped, skip.Record(a.now()))
			a.metrics.IncEntity("skipped")
			continue
		}

		page := a.detail.Parse(detailHTML)
		if added := schema.Fold(page.Tally.Order); added > 0 {
			logger.Debug("Schema extended", zap.String("code", ref.Code), zap.Int("added", added), zap.Int("columns", schema.Len()))
		}
		rows = append(rows, entity.OutputRow{
			Code:    ref.Code,
			Name:    ref.Name,
			Summary: page.Summary,
			Counts:  page.Tally.Counts,
		})
		a.metrics.IncEntity("emitted")
		logger.Debug("Entity processed",
			zap.Int("position", i+1),
			zap.Int("total", len(refs)),
			zap.String("code", ref.Code),
			zap.Int("categories", page.Tally.Len()),
		)
	}

	report.Emitted = len(rows)
	report.FinishedAt = a.now()
	a.metrics.FinishRun("success", schema.Len())
	logger.Info("Run finished",
		zap.Int("requested", report.Requested),
		zap.Int("emitted", report.Emitted),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("columns", schema.Len()),
		zap.Duration("duration", report.Duration()),
	)

	return &entity.Dataset{
		Schema: schema.Names(),
		Rows:   rows,
		Report: report,
	}, nil
}

func (a *Aggregator) fetch(ctx context.Context, kind, url string) (string, error) {
	start := time.Now()
	body, err := a.fetcher.Fetch(ctx, url)
	a.metrics.ObserveFetch(kind, time.Since(start).Seconds(), err)
	return body, err
}
