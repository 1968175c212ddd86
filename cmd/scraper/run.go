package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/adapter/export"
	"github.com/user/election-scraper/internal/repository"
	"github.com/user/election-scraper/internal/usecase"
	"github.com/user/election-scraper/pkg/config"
	"github.com/user/election-scraper/pkg/logger"
)

// NewRunCmd creates the run command.
func NewRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <index-url> <output-file>",
		Short: "Scrape one index page and write the consolidated table",
		Long: `Run fetches the municipality index page, then the result page of every
municipality in order, and writes the consolidated table to output-file.

Municipalities whose result page cannot be fetched are left out and reported
at the end. If the index page cannot be fetched or lists no municipalities,
no file is written.

Exit codes:
  0  success
  1  usage or other error
  2  index page unreachable
  3  index page lists no municipalities

Examples:
  scraper run "https://www.volby.cz/pls/ps2017nss/ps32?xjazyk=CZ&xkraj=12&xnumnuts=7103" results.csv
  scraper run --format xlsx --sqlite runs.db "<index-url>" results.xlsx`,
		Args: exactArgs(2, "<index-url> <output-file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, v, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringP("format", "f", "", "Output format (csv, xlsx); defaults to the file extension")
	flags.String("fetch-mode", "", "Page retrieval mode (http, browser)")
	flags.Int("timeout", 0, "Per-page fetch timeout in seconds")
	flags.Float64("rate", 0, "Maximum page fetches per second")
	flags.Int("retries", 0, "Retries for a failed page fetch")
	flags.String("user-agent", "", "User-Agent header sent with every request")
	flags.String("base-url", "", "Base URL that relative result links resolve against")
	flags.String("sqlite", "", "Also store the run in this SQLite file")
	flags.String("postgres", "", "Also store the run in this PostgreSQL database")
	flags.String("redis", "", "Record skipped municipalities in Redis at this address")

	bindFlag(v, "OUTPUT_FORMAT", flags.Lookup("format"))
	bindFlag(v, "FETCH_MODE", flags.Lookup("fetch-mode"))
	bindFlag(v, "FETCH_TIMEOUT_SECONDS", flags.Lookup("timeout"))
	bindFlag(v, "FETCH_RATE_PER_SECOND", flags.Lookup("rate"))
	bindFlag(v, "MAX_RETRIES", flags.Lookup("retries"))
	bindFlag(v, "USER_AGENT", flags.Lookup("user-agent"))
	bindFlag(v, "BASE_URL", flags.Lookup("base-url"))
	bindFlag(v, "SQLITE_PATH", flags.Lookup("sqlite"))
	bindFlag(v, "POSTGRES_URL", flags.Lookup("postgres"))
	bindFlag(v, "REDIS_ADDR", flags.Lookup("redis"))

	return cmd
}

func runScrape(cmd *cobra.Command, v *viper.Viper, indexURL, outputPath string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	format := cfg.OutputFormat
	if !cmd.Flags().Changed("format") {
		if format, err = export.ResolveFormat(outputPath, cfg.OutputFormat); err != nil {
			return &usageError{msg: err.Error()}
		}
	}
	output, err := export.NewFileWriter(outputPath, format)
	if err != nil {
		return &usageError{msg: err.Error()}
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil, log)
	if err != nil {
		return err
	}
	defer a.Close()

	writers := append([]repository.ResultWriter{output}, a.stores...)
	svc := usecase.NewScrapeService(a.runner, writers, a.ledger, log)

	ds, err := svc.Scrape(ctx, indexURL)
	if err != nil {
		return err
	}

	log.Info("Results written",
		zap.String("run_id", ds.Report.RunID),
		zap.String("path", output.Path()),
		zap.String("format", format),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d of %d municipalities, written to %s\n",
		ds.Report.Emitted, ds.Report.Requested, output.Path())
	for _, s := range ds.Report.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s %s: %s\n", s.Code, s.Name, s.Reason)
	}
	return nil
}
