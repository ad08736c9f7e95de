// Package cli renders run reports for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/neardup/internal/models"
	"github.com/hyperjump/neardup/internal/report"
	"github.com/hyperjump/neardup/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json", case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// ReportOptions controls text rendering of a run report.
type ReportOptions struct {
	// Limit caps listed rows; zero lists all.
	Limit int
	// FlaggedOnly lists only flagged pairs.
	FlaggedOnly bool
	// TextWidth truncates member texts; zero uses 60.
	TextWidth int
}

// WriteRunReport writes report to w in the given format.
func WriteRunReport(w io.Writer, r *models.RunReport, format OutputFormat, opts ReportOptions) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	if opts.TextWidth <= 0 {
		opts.TextWidth = 60
	}
	fmt.Fprintf(w, "\nRun %s (%s) on %s\n", r.ID, r.Mode, r.Source)
	fmt.Fprintf(w, "Model: %s | Threshold: %.2f | Documents: %d | Skipped: %d\n",
		r.Model, r.Threshold, r.Documents, len(r.Skipped))

	switch r.Mode {
	case models.ModePairs:
		writePairsText(w, r, opts)
	case models.ModeClusters:
		writeClustersText(w, r, opts)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintln(w, "\n--- Skipped ---")
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "%s [%s] %s\n", s.Source, s.Stage, s.Reason)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func writePairsText(w io.Writer, r *models.RunReport, opts ReportOptions) {
	fmt.Fprintf(w, "Pairs: %d | Flagged: %d\n\n", len(r.Pairs), r.FlaggedCount())
	if len(r.Pairs) == 0 {
		if r.Documents < 2 {
			fmt.Fprintln(w, "Need at least two documents to compare.")
		}
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE A\tFILE B\tDOC SIM\tMAX CHUNK SIM\tFLAGGED")
	shown := 0
	for _, p := range r.Pairs {
		if opts.FlaggedOnly && !p.Flagged {
			continue
		}
		if opts.Limit > 0 && shown >= opts.Limit {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.A, p.B,
			report.FormatScore(p.DocSim), report.FormatScore(p.MaxChunkSim), report.YesNo(p.Flagged))
		shown++
	}
	_ = tw.Flush()
}

func writeClustersText(w io.Writer, r *models.RunReport, opts ReportOptions) {
	fmt.Fprintf(w, "Kept: %d | Suppressed: %d | Clusters with duplicates: %d\n",
		len(r.Kept), len(r.Members), multiMember(r.Clusters))

	shown := 0
	current := -1
	for _, m := range r.Members {
		if opts.Limit > 0 && shown >= opts.Limit {
			break
		}
		if m.ClusterID != current {
			current = m.ClusterID
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Kept #%d: %s\n", m.KeptIndex, utils.Truncate(utils.OneLine(m.KeptText), opts.TextWidth))
		}
		kind := ""
		if m.Exact {
			kind = " exact"
		}
		fmt.Fprintf(w, "  - #%d (%.4f%s): %s\n", m.MemberIndex, m.Similarity, kind,
			utils.Truncate(utils.OneLine(m.MemberText), opts.TextWidth))
		shown++
	}
}

func multiMember(clusters []models.Cluster) int {
	n := 0
	for _, c := range clusters {
		if c.Size() > 1 {
			n++
		}
	}
	return n
}

// WriteRunSummaries writes a run listing to w in the given format.
func WriteRunSummaries(w io.Writer, runs []models.RunSummary, total int64, format OutputFormat) error {
	if format == OutputJSON {
		if runs == nil {
			runs = []models.RunSummary{}
		}
		return writeJSON(w, map[string]any{"runs": runs, "total": total})
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODE\tCREATED\tDOCS\tFLAGGED\tCLUSTERS\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Mode, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Documents, r.Flagged, r.Clusters, r.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d of %d runs\n", len(runs), total)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
