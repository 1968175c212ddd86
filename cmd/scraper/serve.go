package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/delivery/http/handler"
	"github.com/user/election-scraper/internal/delivery/http/router"
	"github.com/user/election-scraper/internal/delivery/http/server"
	"github.com/user/election-scraper/internal/usecase"
	"github.com/user/election-scraper/pkg/config"
	"github.com/user/election-scraper/pkg/logger"
	"github.com/user/election-scraper/pkg/metrics"
)

// NewServeCmd creates the serve command.
func NewServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose scraping over an HTTP API",
		Long: `Serve starts an HTTP API:

  POST /api/scrape               {"url": "<index-url>", "format": "csv|xlsx|json"}
  GET  /api/runs/{id}            stored run report (needs SQLITE_PATH or POSTGRES_URL)
  GET  /api/runs/{id}/skipped    skipped municipalities (needs REDIS_ADDR)
  GET  /api/health
  GET  /metrics`,
		Args: exactArgs(0, ""),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on")
	bindFlag(v, "SERVER_PORT", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a, err := newApp(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := usecase.NewScrapeService(a.runner, a.stores, a.ledger, log)
	h := handler.NewHandler(svc, log.Named("api"))
	srv := server.New(cfg.ServerPort, router.New(h, m, reg, log.Named("http")), router.ScrapeTimeout, log)

	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Info("Server exiting", zap.String("port", cfg.ServerPort))
	return nil
}
