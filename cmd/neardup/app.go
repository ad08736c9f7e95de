package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/embedding"
	"github.com/hyperjump/neardup/internal/extract"
	"github.com/hyperjump/neardup/internal/metrics"
	"github.com/hyperjump/neardup/internal/pipeline"
	"github.com/hyperjump/neardup/internal/storage"
	"github.com/hyperjump/neardup/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const defaultConfigName = "neardup.yaml"

// loadConfig loads config from path. With no path it uses ./neardup.yaml
// when that exists and built-in defaults otherwise. Returns the config and
// the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, defaultConfigName)
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// app holds the components a command needs. Close releases them.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider embedding.Provider
	store    *storage.SQLiteStore
	registry *prometheus.Registry
	runner   *pipeline.Runner
}

// newApp loads configuration, applies command-line overrides and builds the
// provider, store and runner.
func newApp(opts *rootOptions, override func(*config.Config)) (*app, error) {
	cfg, path, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.Storage.DatabasePath = opts.dbPath
	}
	if override != nil {
		override(cfg)
		// A provider switch may need defaults the loaded file never set.
		config.ApplyProviderDefaults(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug := cfg.Debug || opts.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.provider, err = embedding.New(cfg.Embedding, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	runnerOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(metrics.New(a.registry)),
	}
	if cfg.Storage.DatabasePath != "" {
		a.store, err = storage.NewSQLiteStore(cfg.Storage.DatabasePath)
		if err != nil {
			a.Close()
			return nil, err
		}
		runnerOpts = append(runnerOpts, pipeline.WithStore(a.store))
	}

	a.runner, err = pipeline.NewRunner(cfg, a.provider, extract.NewExtractor(), runnerOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// requireStore fails when save is requested without a report store.
func (a *app) requireStore(save bool) error {
	if save && a.store == nil {
		return errNoStore
	}
	return nil
}

var errNoStore = errors.New("no report store configured: set storage.database_path or pass --db")

// openStore opens only the report store, for commands that never embed.
func openStore(opts *rootOptions) (*storage.SQLiteStore, error) {
	cfg, _, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	path := cfg.Storage.DatabasePath
	if opts.dbPath != "" {
		path = opts.dbPath
	}
	if path == "" {
		return nil, errNoStore
	}
	return storage.NewSQLiteStore(path)
}

// Close releases the provider, store and logger.
func (a *app) Close() {
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Warn("close provider", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
