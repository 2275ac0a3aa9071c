package sweep

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/matrix"
)

// scriptedBackend answers KMeans calls with labels chosen by n_clusters and
// counts concurrent calls
type scriptedBackend struct {
	mu      sync.Mutex
	calls   int
	byK     map[int][]int
	failAtK int
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) DBSCAN(context.Context, cluster.Input, cluster.DBSCANParams) ([]int, error) {
	return []int{0, 0, -1, -1}, nil
}

func (s *scriptedBackend) HDBSCAN(context.Context, *matrix.Matrix, cluster.HDBSCANParams) ([]int, error) {
	return []int{-1, -1, -1, -1}, nil
}

func (s *scriptedBackend) Agglomerative(context.Context, cluster.Input, cluster.AgglomerativeParams) ([]int, error) {
	return []int{0, 0, 1, 1}, nil
}

func (s *scriptedBackend) KMeans(_ context.Context, _ *matrix.Matrix, p cluster.KMeansParams) ([]int, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if p.NClusters == s.failAtK {
		return nil, errors.New("backend exploded")
	}
	return s.byK[p.NClusters], nil
}

func (s *scriptedBackend) Reduce(_ context.Context, m *matrix.Matrix, _ cluster.ReduceParams) (*matrix.Matrix, error) {
	return m, nil
}

func fourPoints(t *testing.T) (*matrix.Matrix, []string) {
	t.Helper()
	m, err := matrix.FromRows([][]float64{{0}, {1}, {2}, {3}})
	if err != nil {
		t.Fatal(err)
	}
	return m, []string{"A", "B", "C", "A"}
}

func kmeansEntry(k int) Entry {
	return Entry{Params: cluster.KMeansParams{NClusters: k, Seed: cluster.Seed(0)}}
}

func TestRunKeepsGridOrder(t *testing.T) {
	m, ids := fourPoints(t)
	backend := &scriptedBackend{byK: map[int][]int{
		1: {0, 0, 0, 0},
		2: {0, 0, 1, 1},
		3: {0, 1, 2, 2},
		4: {0, 1, 2, 3},
	}}
	grid := Grid{kmeansEntry(3), kmeansEntry(1), kmeansEntry(4), kmeansEntry(2)}

	for _, workers := range []int{1, 4} {
		report, err := (&Runner{Backend: backend, Workers: workers}).Run(context.Background(), m, ids, grid)
		if err != nil {
			t.Fatalf("workers=%d: Run failed: %v", workers, err)
		}
		want := []int{3, 1, 4, 2}
		for i, row := range report.Results {
			if row.NClusters != want[i] {
				t.Errorf("workers=%d row %d: expected %d clusters, got %d", workers, i, want[i], row.NClusters)
			}
			if row.Params != grid[i].Params.Describe() {
				t.Errorf("workers=%d row %d: expected params %q, got %q", workers, i, grid[i].Params.Describe(), row.Params)
			}
		}
		if report.Records != 4 || report.Dims != 1 || report.Backend != "scripted" {
			t.Errorf("Unexpected report header %+v", report)
		}
	}
}

func TestRunMixedAlgorithms(t *testing.T) {
	m, ids := fourPoints(t)
	grid := Grid{
		{Params: cluster.DBSCANParams{Eps: 1, MinSamples: 2, Metric: matrix.Euclidean}},
		{Params: cluster.HDBSCANParams{MinClusterSize: 2, ClusterSelectionMethod: cluster.ExcessOfMass, Metric: matrix.Euclidean}},
		{Params: cluster.AgglomerativeParams{NClusters: 2, Linkage: cluster.Ward, Metric: matrix.Euclidean}},
	}
	report, err := (&Runner{Backend: &scriptedBackend{}}).Run(context.Background(), m, ids, grid)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	dbscan := report.Results[0]
	if dbscan.Algorithm != cluster.DBSCAN || dbscan.NClusters != 1 || dbscan.NOutliers != 2 || dbscan.NIdentitiesUnion != 2 {
		t.Errorf("Unexpected DBSCAN row %+v", dbscan)
	}
	hdbscan := report.Results[1]
	if hdbscan.NClusters != 0 || hdbscan.NOutliers != 4 || hdbscan.AvgIdentitiesPerCluster != 0 {
		t.Errorf("Expected degenerate HDBSCAN row, got %+v", hdbscan)
	}
	agg := report.Results[2]
	if agg.NClusters != 2 || agg.NOutliers != 0 || agg.NIdentitiesUnion != 3 || agg.AvgIdentitiesPerCluster != 2 {
		t.Errorf("Unexpected agglomerative row %+v", agg)
	}
}

func TestRunValidatesBeforeClustering(t *testing.T) {
	m, ids := fourPoints(t)
	backend := &scriptedBackend{byK: map[int][]int{2: {0, 0, 1, 1}}}
	grid := Grid{
		kmeansEntry(2),
		{Params: cluster.AgglomerativeParams{NClusters: 2, Linkage: cluster.Ward, Metric: matrix.Euclidean, Precomputed: true}},
	}

	_, err := (&Runner{Backend: backend}).Run(context.Background(), m, ids, grid)
	if !cluster.IsConfigError(err) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
	if backend.calls != 0 {
		t.Errorf("Expected no clustering before validation failed, got %d calls", backend.calls)
	}
}

func TestRunPropagatesBackendErrors(t *testing.T) {
	m, ids := fourPoints(t)
	backend := &scriptedBackend{byK: map[int][]int{2: {0, 0, 1, 1}}, failAtK: 3}
	grid := Grid{kmeansEntry(2), kmeansEntry(3)}

	for _, workers := range []int{1, 2} {
		_, err := (&Runner{Backend: backend, Workers: workers}).Run(context.Background(), m, ids, grid)
		if err == nil || !strings.Contains(err.Error(), "backend exploded") {
			t.Errorf("workers=%d: expected backend error, got %v", workers, err)
		}
	}
}

func TestRunRejectsEmptyGridAndMisalignedIdentities(t *testing.T) {
	m, ids := fourPoints(t)
	r := &Runner{Backend: &scriptedBackend{}}
	if _, err := r.Run(context.Background(), m, ids, nil); err == nil {
		t.Error("Expected error for empty grid")
	}
	if _, err := r.Run(context.Background(), m, ids[:2], Grid{kmeansEntry(1)}); err == nil {
		t.Error("Expected error for misaligned identities")
	}
}

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid()
	if len(g) != 16 {
		t.Fatalf("Expected 16 entries, got %d", len(g))
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Default grid should be valid: %v", err)
	}

	counts := make(map[cluster.Algorithm]int)
	for _, e := range g {
		counts[e.Params.Algorithm()]++
	}
	if counts[cluster.DBSCAN] != 6 || counts[cluster.HDBSCAN] != 6 || counts[cluster.Agglomerative] != 2 || counts[cluster.KMeans] != 2 {
		t.Errorf("Unexpected grid composition %v", counts)
	}
	if got := g[0].Params.Describe(); got != "eps=0.2, min_samp=3" {
		t.Errorf("Expected first entry eps=0.2, min_samp=3, got %q", got)
	}
}

func TestParseGrid(t *testing.T) {
	data := []byte(`
runs:
  - algorithm: kmeans
    params: {n_clusters: 10, seed: 0}
  - algorithm: dbscan
    params: {eps: 0.3, min_samples: 5, metric: cosine}
  - algorithm: hdbscan
    params: {min_cluster_size: 5, min_samples: 5, cluster_selection_epsilon: 0.2, metric: euclidean}
  - algorithm: agglomerative
    params: {n_clusters: 50, linkage: average, metric: cosine, precomputed: true}
  - algorithm: umap_dbscan
    params:
      reduce: {n_neighbors: 15, min_dist: 0.1, n_components: 50, metric: cosine, seed: 42}
      dbscan: {eps: 0.3, min_samples: 5, metric: euclidean}
`)
	g, err := ParseGrid(data)
	if err != nil {
		t.Fatalf("ParseGrid failed: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Parsed grid should be valid: %v", err)
	}
	if len(g) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(g))
	}

	km, ok := g[0].Params.(cluster.KMeansParams)
	if !ok || km.Seed == nil || *km.Seed != 0 {
		t.Errorf("Expected kmeans with explicit seed 0, got %#v", g[0].Params)
	}
	hd := g[2].Params.(cluster.HDBSCANParams)
	if hd.ClusterSelectionMethod != cluster.ExcessOfMass {
		t.Errorf("Expected eom default, got %q", hd.ClusterSelectionMethod)
	}
	if ag := g[3].Params.(cluster.AgglomerativeParams); !ag.Precomputed || ag.Linkage != cluster.Average {
		t.Errorf("Unexpected agglomerative params %+v", ag)
	}
}

func TestParseGridErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown algorithm", "runs:\n  - algorithm: spectral\n    params: {}\n"},
		{"bad field type", "runs:\n  - algorithm: dbscan\n    params: {eps: fast}\n"},
		{"not yaml", "runs: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGrid([]byte(tt.data)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestGridRoundTripsThroughYAML(t *testing.T) {
	data, err := MarshalGrid(DefaultGrid())
	if err != nil {
		t.Fatal(err)
	}
	g, err := ParseGrid(data)
	if err != nil {
		t.Fatalf("ParseGrid failed on marshaled grid: %v\n%s", err, data)
	}
	for i, e := range DefaultGrid() {
		if g[i].Params.Describe() != e.Params.Describe() {
			t.Errorf("entry %d: expected %q, got %q", i, e.Params.Describe(), g[i].Params.Describe())
		}
	}
}
