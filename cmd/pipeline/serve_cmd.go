package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"trend-pipeline/internal/api"
	"trend-pipeline/internal/api/handler"
	"trend-pipeline/internal/config"
	"trend-pipeline/internal/model"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs, metrics and API docs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root, func(cfg *config.Config) {
				if addr != "" {
					cfg.Server.Addr = addr
				}
				if dbPath != "" {
					cfg.Export.SQLitePath = dbPath
				}
				if cfg.Export.SQLitePath == "" {
					cfg.Export.SQLitePath = "trend.db"
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			r := api.NewRouter(api.Deps{
				Store: a.db,
				Executor: handler.ExecutorFunc(func(ctx context.Context) ([]model.SourceResult, error) {
					return a.execute(ctx)
				}),
				Registry:   a.registry,
				Tracker:    a.tracker,
				RunTimeout: a.cfg.Concurrency.JobTimeout,
				Logger:     a.logger,
			})
			srv := r.Server(a.cfg.Server.Addr, a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout)

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server started", slog.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
			}

			a.logger.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config, else trend.db)")
	return cmd
}
