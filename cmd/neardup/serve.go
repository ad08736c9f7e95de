package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/pipeline"
	"github.com/hyperjump/neardup/internal/report"
	"github.com/hyperjump/neardup/internal/server"
	"github.com/hyperjump/neardup/internal/storage"
	"github.com/hyperjump/neardup/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serves the comparison and dedupe API under /api/v1, plus /health and
/metrics. When watch.directories is configured, each directory is rescanned
after changes settle and the run is stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root, func(cfg *config.Config) {
				if cmd.Flags().Changed("host") {
					cfg.Server.Host = host
				}
				if cmd.Flags().Changed("port") {
					cfg.Server.Port = port
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var store storage.Store
			if a.store != nil {
				store = a.store
			}
			srv := server.NewServer(a.runner, store, a.cfg, a.logger, a.registry)

			if dirs := a.cfg.Watch.Directories; len(dirs) > 0 {
				w := newRescanWatcher(ctx, a, dirs, "", a.store != nil)
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			a.logger.Info("Shutting down server")
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}

// newRescanWatcher returns a watcher that rescans a root after its changes
// settle. Scan failures are logged; the next change retries. The report and
// its skipped list are ignored so a rescan never triggers another.
func newRescanWatcher(ctx context.Context, a *app, roots []string, reportPath string, save bool) *watcher.Watcher {
	opts := []watcher.WatcherOption{
		watcher.WithLogger(a.logger),
		watcher.WithExtensions(a.cfg.Watch.Extensions),
		watcher.WithRecursive(a.cfg.Watch.RecursiveOrDefault()),
		watcher.WithDebounce(a.cfg.Watch.Debounce),
	}
	if reportPath != "" {
		opts = append(opts, watcher.WithIgnore(reportPath, report.SkippedPath(reportPath)))
	}
	return watcher.NewWatcher(roots, func(dir string) {
		rescan(ctx, a, dir, reportPath, save)
	}, opts...)
}

func rescan(ctx context.Context, a *app, dir, reportPath string, save bool) {
	if ctx.Err() != nil {
		return
	}
	rep, err := a.runner.ScanDirectory(ctx, dir, pipeline.ScanOptions{ReportPath: reportPath, Save: save})
	if err != nil {
		a.logger.Error("rescan failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	a.logger.Info("rescanned",
		zap.String("dir", dir),
		zap.String("run_id", rep.ID),
		zap.Int("documents", rep.Documents),
		zap.Int("flagged", rep.FlaggedCount()))
}
