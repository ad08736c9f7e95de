// Package report writes pair, cluster and skipped-input reports. The format
// follows the output path's extension: .csv, .tsv, .json, .jsonl/.ndjson or
// .xlsx. Files are written atomically and rows keep the order they are given.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/neardup/internal/models"
	"github.com/hyperjump/neardup/internal/tabular"
	"github.com/hyperjump/neardup/pkg/utils"
)

// ErrUnsupportedFormat is returned for unknown report extensions.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Column sets.
var (
	PairColumns    = []string{"file_a", "file_b", "doc_sim", "max_chunk_sim", "flagged"}
	ClusterColumns = []string{"kept_row_idx", "member_row_idx", "kept_text", "member_text", "similarity", "suppressed", "exact"}
	SkippedColumns = []string{"source", "stage", "reason"}
)

type format string

const (
	formatCSV   format = "csv"
	formatTSV   format = "tsv"
	formatJSON  format = "json"
	formatJSONL format = "jsonl"
	formatXLSX  format = "xlsx"
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV, nil
	case ".tsv":
		return formatTSV, nil
	case ".json":
		return formatJSON, nil
	case ".jsonl", ".ndjson":
		return formatJSONL, nil
	case ".xlsx":
		return formatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// sheet is a report in both its tabular and structured forms.
type sheet struct {
	header  []string
	rows    [][]string
	objects []any
}

// FormatScore renders a similarity with four decimals.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// YesNo renders a flag.
func YesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func pairSheet(pairs []models.SimilarityPair) sheet {
	s := sheet{header: PairColumns, rows: make([][]string, len(pairs)), objects: make([]any, len(pairs))}
	for i, p := range pairs {
		s.rows[i] = []string{p.A, p.B, FormatScore(p.DocSim), FormatScore(p.MaxChunkSim), YesNo(p.Flagged)}
		s.objects[i] = p
	}
	return s
}

type clusterRow struct {
	ClusterID   int     `json:"cluster_id"`
	KeptIndex   int     `json:"kept_row_idx"`
	MemberIndex int     `json:"member_row_idx"`
	KeptText    string  `json:"kept_text"`
	MemberText  string  `json:"member_text"`
	Similarity  float64 `json:"similarity"`
	Suppressed  bool    `json:"suppressed"`
	Exact       bool    `json:"exact"`
}

func clusterSheet(members []models.ClusterMember) sheet {
	s := sheet{header: ClusterColumns, rows: make([][]string, len(members)), objects: make([]any, len(members))}
	for i, m := range members {
		s.rows[i] = []string{
			strconv.Itoa(m.KeptIndex),
			strconv.Itoa(m.MemberIndex),
			m.KeptText,
			m.MemberText,
			FormatScore(m.Similarity),
			YesNo(true),
			YesNo(m.Exact),
		}
		s.objects[i] = clusterRow{
			ClusterID:   m.ClusterID,
			KeptIndex:   m.KeptIndex,
			MemberIndex: m.MemberIndex,
			KeptText:    m.KeptText,
			MemberText:  m.MemberText,
			Similarity:  m.Similarity,
			Suppressed:  true,
			Exact:       m.Exact,
		}
	}
	return s
}

func skippedSheet(skipped []models.SkippedDocument) sheet {
	s := sheet{header: SkippedColumns, rows: make([][]string, len(skipped)), objects: make([]any, len(skipped))}
	for i, d := range skipped {
		s.rows[i] = []string{d.Source, d.Stage, d.Reason}
		s.objects[i] = d
	}
	return s
}

// WritePairs writes the pair report to path.
func WritePairs(path string, pairs []models.SimilarityPair) error {
	return writeFile(path, pairSheet(pairs))
}

// WriteClusters writes one row per suppressed input to path.
func WriteClusters(path string, members []models.ClusterMember) error {
	return writeFile(path, clusterSheet(members))
}

// WriteSkipped writes the skipped-input list to path.
func WriteSkipped(path string, skipped []models.SkippedDocument) error {
	return writeFile(path, skippedSheet(skipped))
}

// EncodePairs writes the pair report to w in the format implied by name.
func EncodePairs(w io.Writer, name string, pairs []models.SimilarityPair) error {
	return encodeNamed(w, name, pairSheet(pairs))
}

// EncodeClusters writes the cluster report to w in the format implied by name.
func EncodeClusters(w io.Writer, name string, members []models.ClusterMember) error {
	return encodeNamed(w, name, clusterSheet(members))
}

// SkippedPath derives the skipped-list path from a report path:
// "out/report.csv" becomes "out/report.skipped.csv".
func SkippedPath(reportPath string) string {
	ext := filepath.Ext(reportPath)
	return strings.TrimSuffix(reportPath, ext) + ".skipped" + ext
}

func writeFile(path string, s sheet) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, func(w io.Writer) error {
		return encode(w, f, s)
	})
}

func encodeNamed(w io.Writer, name string, s sheet) error {
	f, err := formatOf(name)
	if err != nil {
		return err
	}
	return encode(w, f, s)
}

func encode(w io.Writer, f format, s sheet) error {
	switch f {
	case formatCSV:
		return writeDelimited(w, ',', s)
	case formatTSV:
		return writeDelimited(w, '\t', s)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if s.objects == nil {
			s.objects = []any{}
		}
		return enc.Encode(s.objects)
	case formatJSONL:
		enc := json.NewEncoder(w)
		for i, o := range s.objects {
			if err := enc.Encode(o); err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
		}
		return nil
	case formatXLSX:
		return tabular.WriteSheet(w, s.header, s.rows)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func writeDelimited(w io.Writer, comma rune, s sheet) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(s.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(s.rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
