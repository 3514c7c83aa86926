package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trend-pipeline/internal/config"
	"trend-pipeline/internal/export"
	"trend-pipeline/internal/logging"
	"trend-pipeline/internal/model"
	"trend-pipeline/internal/pipeline"
	"trend-pipeline/internal/store"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "pipeline",
		Short:         "Aggregate tabular time series and project linear trends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("TREND_CONFIG"), "Path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newSchemasCmd(),
	)
	return cmd
}

// app wires the configured components together for one command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	registry *pipeline.Registry
	tracker  *pipeline.Tracker
	runner   *pipeline.Runner
	db       *store.DB
}

func newApp(opts *rootOptions, mutate func(*config.Config)) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if mutate != nil {
		mutate(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		registry: pipeline.DefaultRegistry(),
		tracker:  pipeline.NewTracker(),
	}
	a.runner = pipeline.NewRunner(a.registry, cfg.PipelineOptions(), a.tracker, logger)

	if cfg.Export.SQLitePath != "" {
		if a.db, err = store.Open(cfg.Export.SQLitePath); err != nil {
			a.Close()
			return nil, fmt.Errorf("open sqlite sink: %w", err)
		}
	}
	return a, nil
}

func (a *app) presenters(files *export.FilePresenter, extra ...export.Presenter) export.Presenters {
	ps := export.Presenters{}
	if files != nil {
		ps = append(ps, files)
	}
	if a.db != nil {
		ps = append(ps, a.db)
	}
	return append(ps, extra...)
}

// execute runs every configured source and presents the results. Source
// failures do not stop presentation.
func (a *app) execute(ctx context.Context, extra ...export.Presenter) ([]model.SourceResult, error) {
	if a.cfg.Concurrency.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Concurrency.JobTimeout)
		defer cancel()
	}

	jobs, err := a.cfg.Jobs(a.logger)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, errors.New("no sources configured")
	}

	var files *export.FilePresenter
	if a.cfg.Export.Dir != "" && len(a.cfg.Export.Formats) > 0 {
		files = export.NewFilePresenter(a.cfg.Export.Dir, a.cfg.Export.Formats, a.logger)
	}

	results, runErr := a.runner.Run(ctx, jobs)
	presentErr := a.presenters(files, extra...).Present(ctx, results)

	if files != nil {
		written := 0
		for _, r := range files.Results() {
			if r.Success {
				written++
			}
		}
		a.logger.Info("exports complete", slog.String("dir", a.cfg.Export.Dir), slog.Int("files", written))
	}
	return results, errors.Join(runErr, presentErr)
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.closeLog != nil {
		a.closeLog()
	}
}
