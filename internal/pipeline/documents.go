package pipeline

import (
	"context"

	"github.com/hyperjump/neardup/internal/dedup"
	"github.com/hyperjump/neardup/internal/ingest"
	"github.com/hyperjump/neardup/internal/models"
	"github.com/hyperjump/neardup/internal/report"
	"go.uber.org/zap"
)

// ScanOptions configures a directory scan. Zero Threshold uses
// dedup.document_threshold.
type ScanOptions struct {
	Threshold  float64
	ReportPath string
	Save       bool
}

// ScanDirectory compares every pair of documents under dir. When
// ReportPath is set the pair report is written there, and skipped files next
// to it, only after the run succeeds. Both files are left out of the scan
// when they sit under dir.
func (r *Runner) ScanDirectory(ctx context.Context, dir string, opts ScanOptions) (*models.RunReport, error) {
	threshold := r.threshold(opts.Threshold, r.cfg.Dedup.DocumentThreshold)
	rep := r.newReport(models.ModePairs, dir, threshold)

	var outputs []string
	if opts.ReportPath != "" {
		outputs = []string{opts.ReportPath, report.SkippedPath(opts.ReportPath)}
	}
	batch, err := r.loader.LoadDirectory(ctx, dir, outputs...)
	if err != nil {
		return nil, err
	}
	if err := r.comparePairs(ctx, batch, rep); err != nil {
		return nil, err
	}

	if opts.ReportPath != "" {
		if err := report.WritePairs(opts.ReportPath, rep.Pairs); err != nil {
			return nil, err
		}
		if len(rep.Skipped) > 0 {
			if err := report.WriteSkipped(report.SkippedPath(opts.ReportPath), rep.Skipped); err != nil {
				return nil, err
			}
		}
		r.logger.Info("pair report written",
			zap.String("path", opts.ReportPath),
			zap.Int("pairs", len(rep.Pairs)),
			zap.Int("flagged", rep.FlaggedCount()),
			zap.Int("skipped", len(rep.Skipped)))
	}
	if err := r.save(ctx, rep, opts.Save); err != nil {
		return nil, err
	}
	return rep, nil
}

// CompareDocuments scores named texts submitted directly.
func (r *Runner) CompareDocuments(ctx context.Context, req models.CompareRequest) (*models.RunReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	threshold := r.threshold(req.Threshold, r.cfg.Dedup.DocumentThreshold)
	rep := r.newReport(models.ModePairs, "api", threshold)

	batch := r.loader.LoadTexts(req.Documents)
	if err := r.comparePairs(ctx, batch, rep); err != nil {
		return nil, err
	}
	if err := r.save(ctx, rep, req.Save); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *Runner) comparePairs(ctx context.Context, batch *ingest.Batch, rep *models.RunReport) error {
	_, err := r.run(ctx, batch, rep, dedup.Options{
		Mode:      models.ModePairs,
		Threshold: rep.Threshold,
		BatchSize: r.cfg.Embedding.BatchSize,
	})
	return err
}
