package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/neardup/internal/models"
)

func pairsReport() *models.RunReport {
	return &models.RunReport{
		ID:        "run-1",
		Mode:      models.ModePairs,
		Source:    "docs",
		Model:     "hash/64",
		Threshold: 0.9,
		Documents: 3,
		Pairs: []models.SimilarityPair{
			{A: "a.txt", B: "b.txt", DocSim: 0.95, MaxChunkSim: 0.99, Flagged: true},
			{A: "a.txt", B: "c.txt", DocSim: 0.2, MaxChunkSim: 0.3},
		},
		Skipped: []models.SkippedDocument{{Source: "bad.pdf", Stage: models.StageExtract, Reason: "malformed"}},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"TEXT", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteRunReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, pairsReport(), OutputJSON, ReportOptions{}); err != nil {
		t.Fatalf("WriteRunReport(json): %v", err)
	}
	var decoded models.RunReport
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ID != "run-1" || len(decoded.Pairs) != 2 || !decoded.Pairs[0].Flagged {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteRunReport_pairsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, pairsReport(), OutputText, ReportOptions{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Run run-1 (pairs) on docs", "Flagged: 1", "0.9500", "YES", "c.txt", "bad.pdf [extract] malformed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteRunReport_flaggedOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, pairsReport(), OutputText, ReportOptions{FlaggedOnly: true}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "c.txt") {
		t.Errorf("unflagged pair listed:\n%s", buf.String())
	}
}

func TestWriteRunReport_singleDocument(t *testing.T) {
	r := &models.RunReport{ID: "r", Mode: models.ModePairs, Documents: 1}
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, r, OutputText, ReportOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Need at least two documents") {
		t.Errorf("missing warning:\n%s", buf.String())
	}
}

func TestWriteRunReport_clustersText(t *testing.T) {
	r := &models.RunReport{
		ID:   "run-c",
		Mode: models.ModeClusters,
		Clusters: []models.Cluster{
			{ID: 0, Representative: 0, Members: []int{0, 2, 3}},
			{ID: 1, Representative: 1, Members: []int{1}},
		},
		Members: []models.ClusterMember{
			{ClusterID: 0, KeptIndex: 0, MemberIndex: 2, KeptText: "hello\nworld", MemberText: "hello world!", Similarity: 0.97},
			{ClusterID: 0, KeptIndex: 0, MemberIndex: 3, KeptText: "hello\nworld", MemberText: "Hello World", Similarity: 1, Exact: true},
		},
		Kept: []int{0, 1},
	}
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, r, OutputText, ReportOptions{TextWidth: 8}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Kept: 2 | Suppressed: 2 | Clusters with duplicates: 1", "Kept #0: hello wo...", "#3 (1.0000 exact)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "Kept #0") != 1 {
		t.Errorf("cluster header repeated:\n%s", out)
	}
}

func TestWriteRunSummaries(t *testing.T) {
	runs := []models.RunSummary{{
		ID: "run-1", Mode: models.ModePairs, Source: "docs", Documents: 3, Flagged: 1,
		CreatedAt: time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
	}}
	var buf bytes.Buffer
	if err := WriteRunSummaries(&buf, runs, 4, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2024-03-04 05:06:07") || !strings.Contains(out, "1 of 4 runs") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	if err := WriteRunSummaries(&buf, nil, 0, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"runs": []`) {
		t.Errorf("unexpected json:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteRunSummaries(&buf, nil, 0, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No stored runs.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
