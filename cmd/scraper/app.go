package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/election-scraper/internal/adapter/browserfetch"
	"github.com/user/election-scraper/internal/adapter/httpfetch"
	"github.com/user/election-scraper/internal/adapter/postgres"
	redisadapter "github.com/user/election-scraper/internal/adapter/redis"
	"github.com/user/election-scraper/internal/adapter/sqlite"
	"github.com/user/election-scraper/internal/extractor"
	"github.com/user/election-scraper/internal/proxy"
	"github.com/user/election-scraper/internal/repository"
	"github.com/user/election-scraper/internal/usecase"
	"github.com/user/election-scraper/pkg/config"
	"github.com/user/election-scraper/pkg/metrics"
)

// app holds the wired components shared by run and serve.
type app struct {
	runner  usecase.Runner
	stores  []repository.ResultWriter
	ledger  repository.SkipLedgerRepository
	closers []func()
}

// Close releases every connection opened by newApp, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds the fetcher, parsers, aggregator and the optional stores and
// skip ledger described by cfg. m may be nil.
func newApp(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*app, error) {
	a := &app{}

	fetcher, err := newFetcher(cfg, a, logger)
	if err != nil {
		return nil, err
	}

	indexRules := extractor.DefaultIndexRules()
	if cfg.BaseURL != "" {
		indexRules.BaseURL = cfg.BaseURL
	}
	indexParser, err := extractor.NewIndexParser(indexRules, logger.Named("index"))
	if err != nil {
		a.Close()
		return nil, err
	}
	detailParser := extractor.NewDetailParser(extractor.DefaultDetailRules(), logger.Named("detail"))
	a.runner = usecase.NewAggregator(fetcher, indexParser, detailParser, m, logger)

	if err := a.openStores(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newFetcher(cfg *config.Config, a *app, logger *zap.Logger) (repository.Fetcher, error) {
	agents := proxy.NewManager(cfg.ProxyURLs, cfg.UserAgent)

	switch strings.ToLower(cfg.FetchMode) {
	case "", "http":
		return httpfetch.NewFetcher(httpfetch.Config{
			Timeout:    cfg.FetchTimeoutDuration(),
			RateLimit:  rateLimit(cfg.FetchRatePerSecond),
			MaxRetries: cfg.MaxRetries,
		}, agents, logger.Named("http")), nil
	case "browser":
		f := browserfetch.NewFetcher(cfg.FetchTimeoutDuration(), agents, logger.Named("browser"))
		a.closers = append(a.closers, f.Close)
		return f, nil
	}
	return nil, &usageError{msg: fmt.Sprintf("unknown fetch mode %q (want http or browser)", cfg.FetchMode)}
}

func rateLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

func (a *app) openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("unable to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		repo := postgres.NewResultRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare postgres schema: %w", err)
		}
		a.stores = append(a.stores, repo)
		logger.Info("PostgreSQL result store enabled")
	}

	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.stores = append(a.stores, store)
		logger.Info("SQLite result store enabled", zap.String("path", store.Path()))
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("unable to connect to redis: %w", err)
		}
		a.ledger = redisadapter.NewSkipLedger(rdb, 0)
		logger.Info("Redis skip ledger enabled", zap.String("addr", cfg.RedisAddr))
	}
	return nil
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	// Only fails for a nil flag.
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
