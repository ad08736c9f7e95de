// Package main is the neardup CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "neardup",
		Short: "Find near-duplicate documents and rows with embeddings",
		Long: `neardup embeds documents or table rows and reports near-duplicates.

Documents are compared pairwise on both whole-document and best-chunk
similarity. Rows are clustered so one representative of each group of
near-duplicates is kept.

Environment variables:
  OPENAI_API_KEY  API key for the hosted embedding provider
A .env file in the working directory is loaded when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (default ./"+defaultConfigName+" when present)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite report store path (overrides storage.database_path)")

	root.AddCommand(
		newScanCmd(opts),
		newDedupeCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
		newRunsCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "neardup version %s\n", version)
		},
	}
}

func main() {
	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
