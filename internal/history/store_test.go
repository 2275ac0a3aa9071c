package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/stats"
	"github.com/yildizm/feedcluster/internal/sweep"
)

// newTestStore creates an in-memory store for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(input string) *sweep.Report {
	return &sweep.Report{
		InputFile: input,
		Records:   4,
		Dims:      2,
		Backend:   "native",
		StartedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Duration:  250 * time.Millisecond,
		Results: []sweep.RunResult{
			{
				Algorithm: cluster.KMeans,
				Params:    "n_clusters=3",
				Summary:   stats.Summary{NClusters: 3, NIdentitiesUnion: 4, AvgIdentitiesPerCluster: 1.33},
				Duration:  12 * time.Millisecond,
			},
			{
				Algorithm: cluster.DBSCAN,
				Params:    "eps=0.3, min_samp=5",
				Summary:   stats.Summary{NClusters: 0, NOutliers: 4},
			},
			{
				Algorithm: cluster.KMeans,
				Params:    "n_clusters=2",
				Summary:   stats.Summary{NClusters: 2, NIdentitiesUnion: 4, AvgIdentitiesPerCluster: 2},
			},
		},
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := testReport("feedback.json")
	id, err := s.SaveReport(ctx, in)
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("Expected positive run id, got %d", id)
	}

	out, err := s.LoadReport(ctx, id)
	if err != nil {
		t.Fatalf("LoadReport failed: %v", err)
	}

	if out.InputFile != in.InputFile || out.Records != 4 || out.Dims != 2 || out.Backend != "native" {
		t.Errorf("Unexpected run metadata: %+v", out)
	}
	if !out.StartedAt.Equal(in.StartedAt) {
		t.Errorf("Expected start %v, got %v", in.StartedAt, out.StartedAt)
	}
	if out.Duration != in.Duration {
		t.Errorf("Expected duration %v, got %v", in.Duration, out.Duration)
	}
	if len(out.Results) != len(in.Results) {
		t.Fatalf("Expected %d results, got %d", len(in.Results), len(out.Results))
	}
	for i := range in.Results {
		want, got := in.Results[i], out.Results[i]
		if got.Algorithm != want.Algorithm || got.Params != want.Params || got.Summary != want.Summary {
			t.Errorf("Row %d: expected %+v, got %+v", i, want, got)
		}
	}
	if out.Results[0].Duration != 12*time.Millisecond {
		t.Errorf("Expected row duration 12ms, got %v", out.Results[0].Duration)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a.json", "b.json", "c.json"} {
		if _, err := s.SaveReport(ctx, testReport(name)); err != nil {
			t.Fatalf("SaveReport(%s) failed: %v", name, err)
		}
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	if runs[0].InputFile != "c.json" || runs[2].InputFile != "a.json" {
		t.Errorf("Expected newest first, got %s ... %s", runs[0].InputFile, runs[2].InputFile)
	}
	if runs[0].Results != 3 {
		t.Errorf("Expected 3 results per run, got %d", runs[0].Results)
	}

	limited, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 runs with limit, got %d", len(limited))
	}
}

func TestLoadReportNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadReport(context.Background(), 42)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveReport(ctx, testReport("a.json"))
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if err := s.DeleteRun(ctx, id); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := s.LoadReport(ctx, id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected deleted run to be gone, got %v", err)
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM run_results WHERE run_id = ?", id).Scan(&n); err != nil {
		t.Fatalf("counting results: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected results to cascade, %d rows left", n)
	}

	if err := s.DeleteRun(ctx, id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound on second delete, got %v", err)
	}
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.SaveReport(context.Background(), testReport("a.json")); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || reopened.Path() != path {
		t.Errorf("Expected 1 persisted run at %s, got %d at %s", path, len(runs), reopened.Path())
	}
}

func TestSaveNilReport(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveReport(context.Background(), nil); err == nil {
		t.Error("Expected error for nil report")
	}
}
