// Package pipeline runs end-to-end dedup jobs: load inputs, run the engine,
// write reports and filtered rows, and optionally persist the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/dedup"
	"github.com/hyperjump/neardup/internal/embedding"
	"github.com/hyperjump/neardup/internal/ingest"
	"github.com/hyperjump/neardup/internal/metrics"
	"github.com/hyperjump/neardup/internal/models"
	"github.com/hyperjump/neardup/internal/storage"
	"go.uber.org/zap"
)

// Runner wires configuration, loader, engine and store together. It is safe
// for concurrent runs as long as the provider is.
type Runner struct {
	cfg      *config.Config
	provider embedding.Provider
	loader   *ingest.Loader
	engine   *dedup.Engine
	store    storage.Store
	recorder *metrics.Recorder
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger passed down to the loader and engine.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithStore persists runs that ask to be saved.
func WithStore(s storage.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithRecorder records run metrics.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithClock overrides time and run id generation.
func WithClock(now func() time.Time, newID func() string) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewRunner validates cfg and builds a runner around provider. reader
// extracts document files; nil reads them as plain text.
func NewRunner(cfg *config.Config, provider embedding.Provider, reader ingest.Reader, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, config.Invalid("config", "is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, config.Invalid("embedding.provider", "no provider configured")
	}
	r := &Runner{
		cfg:      cfg,
		provider: provider,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	chunker, err := ingest.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	r.loader = ingest.NewLoader(reader, chunker,
		ingest.WithLogger(r.logger),
		ingest.WithMinChars(cfg.Chunking.MinChars),
		ingest.WithExtensions(cfg.Watch.Extensions),
		ingest.WithRecursive(cfg.Watch.RecursiveOrDefault()),
	)
	r.engine = dedup.NewEngine(provider, dedup.WithLogger(r.logger), dedup.WithRecorder(r.recorder))
	return r, nil
}

// Loader returns the document loader, shared with the directory watcher.
func (r *Runner) Loader() *ingest.Loader { return r.loader }

// Store returns the configured store, or nil.
func (r *Runner) Store() storage.Store { return r.store }

func (r *Runner) newReport(mode models.Mode, source string, threshold float64) *models.RunReport {
	return &models.RunReport{
		ID:        r.newID(),
		Mode:      mode,
		Source:    source,
		Model:     r.provider.Name(),
		Threshold: threshold,
		CreatedAt: r.now(),
	}
}

// run executes the engine and records metrics for the whole run.
func (r *Runner) run(ctx context.Context, batch *ingest.Batch, report *models.RunReport, opts dedup.Options) (res *dedup.Result, err error) {
	start := time.Now()
	defer func() { r.recorder.RunFinished(string(report.Mode), err, time.Since(start)) }()

	for _, s := range batch.Skipped {
		r.recorder.Skipped(s.Stage)
	}
	report.Documents = len(batch.Documents)
	report.Skipped = batch.Skipped
	r.recorder.Documents(string(report.Mode), len(batch.Documents))

	res, err = r.engine.Run(ctx, batch.Documents, opts)
	if err != nil {
		r.logger.Error("run failed", zap.String("run_id", report.ID), zap.String("mode", string(report.Mode)), zap.Error(err))
		return nil, err
	}
	report.Pairs = res.Pairs
	report.Clusters = res.Clusters
	report.Members = res.Members
	report.Kept = res.Kept

	if report.Mode == models.ModePairs {
		r.recorder.PairsFlagged(report.FlaggedCount())
	} else {
		multi := 0
		for _, c := range res.Clusters {
			if c.Size() > 1 {
				multi++
			}
		}
		r.recorder.ClustersFound(multi, len(res.Members))
	}
	return res, nil
}

func (r *Runner) save(ctx context.Context, report *models.RunReport, want bool) error {
	if !want || r.store == nil {
		return nil
	}
	if err := r.store.SaveRun(ctx, report); err != nil {
		return fmt.Errorf("save run %s: %w", report.ID, err)
	}
	r.logger.Debug("run saved", zap.String("run_id", report.ID))
	return nil
}

func (r *Runner) threshold(explicit, fallback float64) float64 {
	if explicit > 0 {
		return explicit
	}
	return fallback
}
