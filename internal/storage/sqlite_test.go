package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/neardup/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_PairsRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &models.RunReport{
		ID:        "run-1",
		Mode:      models.ModePairs,
		Source:    "docs/",
		Model:     "hash/64",
		Threshold: 0.9,
		Documents: 3,
		Pairs: []models.SimilarityPair{
			{A: "a.txt", B: "b.txt", AIndex: 0, BIndex: 1, DocSim: 0.95, MaxChunkSim: 0.97, Flagged: true},
			{A: "a.txt", B: "c.txt", AIndex: 0, BIndex: 2, DocSim: 0.1, MaxChunkSim: 0.2},
		},
		Skipped: []models.SkippedDocument{{Source: "bad.pdf", Stage: models.StageExtract, Reason: "broken"}},
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if run.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != models.ModePairs || got.Documents != 3 || got.Model != "hash/64" {
		t.Errorf("got %+v", got)
	}
	if len(got.Pairs) != 2 || got.Pairs[0].B != "b.txt" || !got.Pairs[0].Flagged || got.Pairs[1].Flagged {
		t.Errorf("pairs = %+v", got.Pairs)
	}
	if len(got.Skipped) != 1 || got.Skipped[0].Source != "bad.pdf" {
		t.Errorf("skipped = %+v", got.Skipped)
	}

	list, err := store.ListRuns(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Flagged != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestSQLiteStore_ClustersRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &models.RunReport{
		ID:        "run-c",
		Mode:      models.ModeClusters,
		Threshold: 0.92,
		Policy:    "longest",
		Documents: 4,
		Clusters: []models.Cluster{
			{ID: 0, Representative: 1, Members: []int{0, 1, 3}, Similarities: []float64{0.95, 1, 1}},
			{ID: 1, Representative: 2, Members: []int{2}, Similarities: []float64{1}},
		},
		Members: []models.ClusterMember{
			{ClusterID: 0, KeptIndex: 1, MemberIndex: 0, KeptText: "long text", MemberText: "text", Similarity: 0.95},
			{ClusterID: 0, KeptIndex: 1, MemberIndex: 3, KeptText: "long text", MemberText: "long text", Similarity: 1, Exact: true},
		},
		Kept: []int{1, 2},
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun(ctx, "run-c")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Clusters) != 2 || got.Clusters[0].Representative != 1 {
		t.Errorf("clusters = %+v", got.Clusters)
	}
	if len(got.Kept) != 2 || got.Kept[0] != 1 || got.Kept[1] != 2 {
		t.Errorf("kept = %v", got.Kept)
	}
	if len(got.Members) != 2 || !got.Members[1].Exact || got.Members[0].Exact {
		t.Errorf("members = %+v", got.Members)
	}
}

func TestSQLiteStore_ListOrderAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		run := &models.RunReport{ID: id, Mode: models.ModePairs, Threshold: 0.9, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListRuns(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "mid" {
		t.Errorf("list = %+v", list)
	}

	n, err := store.CountRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 runs, got %d", n)
	}

	if err := store.DeleteRun(ctx, "mid"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetRun(ctx, "mid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteRun(ctx, "mid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLiteStore_DeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &models.RunReport{
		ID:    "r",
		Mode:  models.ModePairs,
		Pairs: []models.SimilarityPair{{A: "a", B: "b"}},
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteRun(ctx, "r"); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM pairs`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected pairs to be deleted, got %d", n)
	}
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run := &models.RunReport{ID: "dup", Mode: models.ModePairs}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(ctx, run); err == nil {
		t.Error("expected error on duplicate id")
	}
}

func TestSQLiteStore_SizeBytes(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveRun(context.Background(), &models.RunReport{ID: "x", Mode: models.ModePairs}); err != nil {
		t.Fatal(err)
	}
	size, err := store.SizeBytes()
	if err != nil {
		t.Fatal(err)
	}
	if size <= 0 {
		t.Errorf("expected positive size, got %d", size)
	}
}
