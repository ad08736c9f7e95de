package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hyperjump/neardup/internal/cli"
	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/pipeline"
	"github.com/spf13/cobra"
)

// derivedPath inserts suffix before the extension of path:
// derivedPath("rows.csv", ".dedup", "") is "rows.dedup.csv". A non-empty
// ext replaces the original extension.
func derivedPath(path, suffix, ext string) string {
	orig := filepath.Ext(path)
	if ext == "" {
		ext = orig
	}
	return strings.TrimSuffix(path, orig) + suffix + ext
}

func newDedupeCmd(root *rootOptions) *cobra.Command {
	var (
		batchSize  int
		provider   string
		inPath     string
		outPath    string
		reportPath string
		textCol    string
		threshold  float64
		policy     string
		output     string
		limit      int
		save       bool
	)
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Collapse near-duplicate rows of a table",
		Long: `Reads a CSV, TSV, JSON Lines or XLSX file, embeds the text column of every
row and groups rows whose similarity reaches the threshold, transitively. One
representative per group is kept; the output has the same format and columns
as the input, rows in their original order. The cluster report maps every
kept row to the rows it replaced.

Examples:
  neardup dedupe --in tickets.csv --out tickets.clean.csv --text-col body
  neardup dedupe --in rows.jsonl --policy longest --threshold 0.95`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = derivedPath(inPath, ".dedup", "")
			}
			if reportPath == "" {
				reportPath = derivedPath(outPath, ".report", ".csv")
			}
			if filepath.Clean(outPath) == filepath.Clean(inPath) {
				return fmt.Errorf("--out must differ from --in")
			}

			a, err := newApp(root, func(cfg *config.Config) {
				if cmd.Flags().Changed("batch-size") {
					cfg.Embedding.BatchSize = batchSize
				}
				if cmd.Flags().Changed("provider") {
					cfg.Embedding.Provider = provider
				}
				if cmd.Flags().Changed("threshold") {
					cfg.Dedup.RowThreshold = threshold
				}
				if cmd.Flags().Changed("policy") {
					cfg.Dedup.RepresentativePolicy = policy
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireStore(save); err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			rep, err := a.runner.DedupeTable(ctx, pipeline.DedupeOptions{
				InputPath:  inPath,
				OutputPath: outPath,
				ReportPath: reportPath,
				TextColumn: textCol,
				Save:       save,
			})
			if err != nil {
				return err
			}
			if format == cli.OutputText {
				fmt.Fprintf(cmd.OutOrStdout(), "Kept %d of %d rows -> %s\nReport -> %s\n",
					len(rep.Kept), rep.Documents+len(rep.Skipped), outPath, reportPath)
			}
			return cli.WriteRunReport(cmd.OutOrStdout(), rep, format, cli.ReportOptions{Limit: limit})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input table (.csv, .tsv, .jsonl or .xlsx)")
	cmd.Flags().StringVar(&outPath, "out", "", "output table (default <in>.dedup.<ext>)")
	cmd.Flags().StringVar(&reportPath, "report", "", "cluster report path (default <out>.report.csv)")
	cmd.Flags().StringVar(&textCol, "text-col", "text", "column holding the text to compare")
	cmd.Flags().Float64Var(&threshold, "threshold", config.DefaultRowThreshold, "similarity threshold in (0, 1)")
	cmd.Flags().StringVar(&policy, "policy", "first", "representative policy: first or longest")
	cmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "texts per embedding request")
	cmd.Flags().StringVar(&provider, "provider", "", "embedding provider: openai, onnx or hash")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "console output: text or json")
	cmd.Flags().IntVar(&limit, "limit", 20, "list at most this many suppressed rows (0 = all)")
	cmd.Flags().BoolVar(&save, "save", false, "store the run in the report store")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
