package main

import (
	"github.com/hyperjump/neardup/internal/cli"
	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/pipeline"
	"github.com/spf13/cobra"
)

// chunkFlags are the chunking and embedding overrides shared by commands
// that run the engine.
type chunkFlags struct {
	chunkSize int
	overlap   int
	minChars  int
	batchSize int
	provider  string
}

func (f *chunkFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", config.DefaultChunkSize, "maximum chunk length in characters")
	cmd.Flags().IntVar(&f.overlap, "overlap", config.DefaultOverlap, "characters carried from one chunk into the next")
	cmd.Flags().IntVar(&f.minChars, "min-chars", config.DefaultMinChars, "skip documents shorter than this many characters")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", config.DefaultBatchSize, "texts per embedding request")
	cmd.Flags().StringVar(&f.provider, "provider", "", "embedding provider: openai, onnx or hash")
}

// apply copies flags the user set explicitly over cfg.
func (f *chunkFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("chunk-size") {
		cfg.Chunking.ChunkSize = f.chunkSize
	}
	if cmd.Flags().Changed("overlap") {
		cfg.Chunking.Overlap = f.overlap
	}
	if cmd.Flags().Changed("min-chars") {
		cfg.Chunking.MinChars = f.minChars
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Embedding.BatchSize = f.batchSize
	}
	if cmd.Flags().Changed("provider") {
		cfg.Embedding.Provider = f.provider
	}
}

func newScanCmd(root *rootOptions) *cobra.Command {
	var (
		chunks      chunkFlags
		threshold   float64
		reportPath  string
		output      string
		limit       int
		flaggedOnly bool
		save        bool
	)
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Compare every pair of documents in a directory",
		Long: `Extracts text from every supported file under dir, embeds it in chunks and
scores every document pair. A pair is flagged when either the whole-document
similarity or the best chunk-to-chunk similarity reaches the threshold.

Examples:
  neardup scan ./contracts
  neardup scan ./contracts --threshold 0.85 --report pairs.csv
  neardup scan ./contracts --report pairs.xlsx --flagged-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			a, err := newApp(root, func(cfg *config.Config) {
				chunks.apply(cmd, cfg)
				if cmd.Flags().Changed("threshold") {
					cfg.Dedup.DocumentThreshold = threshold
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
			rep, err := a.runner.ScanDirectory(ctx, args[0], pipeline.ScanOptions{
				ReportPath: reportPath,
				Save:       save,
			})
			if err != nil {
				return err
			}
			return cli.WriteRunReport(cmd.OutOrStdout(), rep, format, cli.ReportOptions{
				Limit:       limit,
				FlaggedOnly: flaggedOnly,
			})
		},
	}
	chunks.register(cmd)
	cmd.Flags().Float64Var(&threshold, "threshold", config.DefaultDocumentThreshold, "similarity threshold in (0, 1)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the pair report here (.csv, .tsv, .json, .jsonl or .xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "console output: text or json")
	cmd.Flags().IntVar(&limit, "limit", 0, "list at most this many pairs (0 = all)")
	cmd.Flags().BoolVar(&flaggedOnly, "flagged-only", false, "list only flagged pairs")
	cmd.Flags().BoolVar(&save, "save", false, "store the run in the report store")
	return cmd
}
