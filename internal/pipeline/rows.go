package pipeline

import (
	"context"
	"os"
	"strings"

	"github.com/hyperjump/neardup/internal/dedup"
	"github.com/hyperjump/neardup/internal/ingest"
	"github.com/hyperjump/neardup/internal/models"
	"github.com/hyperjump/neardup/internal/report"
	"github.com/hyperjump/neardup/internal/tabular"
	"go.uber.org/zap"
)

// DedupeOptions configures a tabular dedup run. Zero Threshold uses
// dedup.row_threshold; empty Policy uses dedup.representative_policy.
type DedupeOptions struct {
	InputPath  string
	OutputPath string
	ReportPath string
	TextColumn string
	Threshold  float64
	Policy     string
	Save       bool
}

// DedupeTable clusters the rows of a CSV, TSV, JSON Lines or XLSX file by
// the text column and writes the kept rows, in input order and format, to
// OutputPath. Nothing is written unless the whole run succeeds.
func (r *Runner) DedupeTable(ctx context.Context, opts DedupeOptions) (*models.RunReport, error) {
	if opts.TextColumn == "" {
		opts.TextColumn = "text"
	}
	table, err := tabular.Read(opts.InputPath)
	if err != nil {
		return nil, err
	}
	texts, err := table.Texts(opts.TextColumn)
	if err != nil {
		return nil, err
	}

	rep, err := r.dedupeRows(ctx, texts, opts.InputPath, opts.Threshold, opts.Policy)
	if err != nil {
		return nil, err
	}

	// Reports go first; a failed table write removes them again so a failed
	// run leaves no outputs behind.
	var written []string
	if opts.ReportPath != "" {
		if err := report.WriteClusters(opts.ReportPath, rep.Members); err != nil {
			return nil, err
		}
		written = append(written, opts.ReportPath)
		if len(rep.Skipped) > 0 {
			skipped := report.SkippedPath(opts.ReportPath)
			if err := report.WriteSkipped(skipped, rep.Skipped); err != nil {
				removeAll(written)
				return nil, err
			}
			written = append(written, skipped)
		}
	}
	if opts.OutputPath != "" {
		if err := tabular.Write(opts.OutputPath, table.Filter(rep.Kept)); err != nil {
			removeAll(written)
			return nil, err
		}
	}
	r.logger.Info("rows deduplicated",
		zap.String("input", opts.InputPath),
		zap.Int("rows", len(texts)),
		zap.Int("kept", len(rep.Kept)),
		zap.Int("suppressed", len(rep.Members)),
		zap.Int("skipped", len(rep.Skipped)))

	if err := r.save(ctx, rep, opts.Save); err != nil {
		return nil, err
	}
	return rep, nil
}

// DedupeTexts clusters texts submitted directly and returns the kept texts
// in input order.
func (r *Runner) DedupeTexts(ctx context.Context, req models.DedupeRequest) (*models.DedupeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rep, err := r.dedupeRows(ctx, req.Texts, "api", req.Threshold, req.Policy)
	if err != nil {
		return nil, err
	}
	if err := r.save(ctx, rep, req.Save); err != nil {
		return nil, err
	}
	kept := make([]string, len(rep.Kept))
	for i, idx := range rep.Kept {
		kept[i] = req.Texts[idx]
	}
	return &models.DedupeResponse{Kept: kept, Report: rep}, nil
}

func (r *Runner) dedupeRows(ctx context.Context, texts []string, source string, threshold float64, policy string) (*models.RunReport, error) {
	threshold = r.threshold(threshold, r.cfg.Dedup.RowThreshold)
	if strings.TrimSpace(policy) == "" {
		policy = r.cfg.Dedup.RepresentativePolicy
	}
	rep := r.newReport(models.ModeClusters, source, threshold)
	rep.Policy = strings.ToLower(strings.TrimSpace(policy))

	batch := ingest.RowDocuments(texts)
	if _, err := r.run(ctx, batch, rep, dedup.Options{
		Mode:      models.ModeClusters,
		Threshold: threshold,
		Policy:    dedup.Policy(policy),
		BatchSize: r.cfg.Embedding.BatchSize,
	}); err != nil {
		return nil, err
	}
	return rep, nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
