package main

import (
	"fmt"

	"github.com/hyperjump/neardup/internal/cli"
	"github.com/spf13/cobra"
)

func newRunsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored runs",
		Long:  "List, show and delete runs kept in the report store (storage.database_path or --db).",
	}
	cmd.AddCommand(newRunsListCmd(root), newRunsShowCmd(root), newRunsDeleteCmd(root))
	return cmd
}

func newRunsListCmd(root *rootOptions) *cobra.Command {
	var (
		offset int
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			store, err := openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), offset, limit)
			if err != nil {
				return err
			}
			total, err := store.CountRuns(cmd.Context())
			if err != nil {
				return err
			}
			return cli.WriteRunSummaries(cmd.OutOrStdout(), runs, total, format)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many runs")
	cmd.Flags().IntVar(&limit, "limit", 20, "list at most this many runs")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func newRunsShowCmd(root *rootOptions) *cobra.Command {
	var (
		output      string
		limit       int
		flaggedOnly bool
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			store, err := openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cli.WriteRunReport(cmd.OutOrStdout(), rep, format, cli.ReportOptions{
				Limit:       limit,
				FlaggedOnly: flaggedOnly,
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	cmd.Flags().IntVar(&limit, "limit", 0, "list at most this many pairs or members (0 = all)")
	cmd.Flags().BoolVar(&flaggedOnly, "flagged-only", false, "list only flagged pairs")
	return cmd
}

func newRunsDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
