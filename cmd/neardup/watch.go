package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hyperjump/neardup/internal/config"
	"github.com/spf13/cobra"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		chunks     chunkFlags
		reportPath string
		debounce   time.Duration
		save       bool
	)
	cmd := &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Rescan directories whenever their documents change",
		Long: `Scans each directory once, then rescans it every time supported files under
it change. With no arguments the watch.directories from the config are used.
Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root, func(cfg *config.Config) {
				chunks.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("debounce") {
				a.cfg.Watch.Debounce = debounce
			}
			dirs := args
			if len(dirs) == 0 {
				dirs = a.cfg.Watch.Directories
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no directories to watch: pass them as arguments or set watch.directories")
			}
			if err := a.requireStore(save); err != nil {
				return err
			}
			if reportPath != "" {
				if reportPath, err = filepath.Abs(reportPath); err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			for _, dir := range dirs {
				rescan(ctx, a, dir, reportPath, save)
			}
			w := newRescanWatcher(ctx, a, dirs, reportPath, save)
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d director%s, press Ctrl+C to stop\n", len(dirs), plural(len(dirs), "y", "ies"))
			<-ctx.Done()
			return nil
		},
	}
	chunks.register(cmd)
	cmd.Flags().StringVar(&reportPath, "report", "", "rewrite this pair report after every scan")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a rescan, e.g. 500ms (overrides watch.debounce)")
	cmd.Flags().BoolVar(&save, "save", false, "store every scan in the report store")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
