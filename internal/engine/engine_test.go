package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/matrix"
)

func rows(t *testing.T, data [][]float64) *matrix.Matrix {
	t.Helper()
	m, err := matrix.FromRows(data)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// blobs returns size points around each center on a small deterministic spiral
func blobs(centers [][]float64, size int) [][]float64 {
	var out [][]float64
	for _, c := range centers {
		for i := 0; i < size; i++ {
			angle := float64(i) * 2.4
			r := 0.05 + 0.02*float64(i)
			p := append([]float64(nil), c...)
			p[0] += r * math.Cos(angle)
			p[1] += r * math.Sin(angle)
			out = append(out, p)
		}
	}
	return out
}

func samePartition(t *testing.T, labels []int, groups [][]int) {
	t.Helper()
	seen := make(map[int]bool)
	for _, g := range groups {
		first := labels[g[0]]
		if first < 0 {
			t.Fatalf("Expected group %v to be clustered, got labels %v", g, labels)
		}
		if seen[first] {
			t.Fatalf("Expected groups to have distinct labels, got %v", labels)
		}
		seen[first] = true
		for _, i := range g {
			if labels[i] != first {
				t.Fatalf("Expected point %d in group with label %d, got %v", i, first, labels)
			}
		}
	}
}

func span(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func TestDBSCANScenario(t *testing.T) {
	m := rows(t, [][]float64{{0, 0}, {0, 0.01}, {10, 10}})
	backend := NewNative(nil)

	for _, precomputed := range []bool{false, true} {
		a, err := cluster.Fit(context.Background(), backend, m, cluster.DBSCANParams{
			Eps: 1.0, MinSamples: 2, Metric: matrix.Euclidean, Precomputed: precomputed,
		})
		if err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		got := a.Ints()
		if got[0] != 0 || got[1] != 0 || got[2] != -1 {
			t.Errorf("precomputed=%v: expected [0 0 -1], got %v", precomputed, got)
		}
	}
}

func TestDBSCANBorderAndNoise(t *testing.T) {
	// 0..3 form a dense chain, 4 is a border point of 3, 5 is isolated
	m := rows(t, [][]float64{{0, 0}, {0.5, 0}, {1, 0}, {1.5, 0}, {2.4, 0}, {9, 9}})
	labels, err := dbscan(context.Background(), matrix.Pairwise(m, matrix.Euclidean), 1.0, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 0, 0, 0, 0, -1}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, labels)
		}
	}
}

func TestDBSCANCosine(t *testing.T) {
	m := rows(t, [][]float64{{1, 0}, {5, 0.1}, {0, 1}, {0.1, 7}})
	labels, err := dbscan(context.Background(), matrix.Pairwise(m, matrix.Cosine), 0.05, 2)
	if err != nil {
		t.Fatal(err)
	}
	samePartition(t, labels, [][]int{{0, 1}, {2, 3}})
}

func TestHDBSCAN(t *testing.T) {
	data := blobs([][]float64{{0, 0}, {10, 10}}, 10)
	data = append(data, []float64{50, -50})
	m := rows(t, data)

	tests := []struct {
		name    string
		leaf    bool
		epsilon float64
	}{
		{"eom", false, 0},
		{"leaf", true, 0},
		{"eom with epsilon", false, 100},
		{"leaf with epsilon", true, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels, err := hdbscan(context.Background(), matrix.Pairwise(m, matrix.Euclidean), hdbscanConfig{
				minClusterSize: 6,
				minSamples:     3,
				epsilon:        tt.epsilon,
				leaf:           tt.leaf,
			})
			if err != nil {
				t.Fatal(err)
			}
			samePartition(t, labels, [][]int{span(0, 10), span(10, 20)})
			if labels[20] != -1 {
				t.Errorf("Expected the far point to be noise, got %v", labels)
			}
		})
	}
}

func TestHDBSCANTooSmall(t *testing.T) {
	m := rows(t, [][]float64{{0, 0}, {1, 1}})
	labels, err := hdbscan(context.Background(), matrix.Pairwise(m, matrix.Euclidean), hdbscanConfig{minClusterSize: 5, minSamples: 5})
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != -1 || labels[1] != -1 {
		t.Errorf("Expected all noise, got %v", labels)
	}
}

func TestAgglomerative(t *testing.T) {
	m := rows(t, [][]float64{{0, 0}, {0.1, 0}, {5, 0}, {5.1, 0}, {10, 0}})
	for _, linkage := range cluster.Linkages {
		t.Run(string(linkage), func(t *testing.T) {
			labels, err := agglomerative(context.Background(), matrix.Pairwise(m, matrix.Euclidean), linkage, 3)
			if err != nil {
				t.Fatal(err)
			}
			want := []int{0, 0, 1, 1, 2}
			for i := range want {
				if labels[i] != want[i] {
					t.Fatalf("Expected %v, got %v", want, labels)
				}
			}
		})
	}
}

func TestAgglomerativeExtremes(t *testing.T) {
	m := rows(t, [][]float64{{0, 0}, {1, 0}, {3, 0}})
	dist := matrix.Pairwise(m, matrix.Euclidean)

	one, err := agglomerative(context.Background(), dist, cluster.Average, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range one {
		if l != 0 {
			t.Fatalf("Expected a single cluster, got %v", one)
		}
	}

	all, err := agglomerative(context.Background(), dist, cluster.Complete, 3)
	if err != nil {
		t.Fatal(err)
	}
	if all[0] != 0 || all[1] != 1 || all[2] != 2 {
		t.Errorf("Expected singletons, got %v", all)
	}
}

func TestKMeansIsReproducible(t *testing.T) {
	m := rows(t, blobs([][]float64{{0, 0}, {8, 0}, {0, 8}}, 7))

	first, err := kmeans(context.Background(), m, 3, 0, 300)
	if err != nil {
		t.Fatal(err)
	}
	samePartition(t, first, [][]int{span(0, 7), span(7, 14), span(14, 21)})

	second, err := kmeans(context.Background(), m, 3, 0, 300)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Expected identical labels for the same seed, got %v and %v", first, second)
		}
	}
}

func TestFitCurve(t *testing.T) {
	a, b := fitCurve(0.1, 1.0)
	if math.Abs(a-1.577) > 0.1 || math.Abs(b-0.895) > 0.05 {
		t.Errorf("Expected a≈1.577 b≈0.895, got a=%v b=%v", a, b)
	}
}

func TestUMAPReduce(t *testing.T) {
	data := blobs([][]float64{{0, 0, 1, 0, 0}, {6, 6, 0, 1, 0}, {-6, 6, 0, 0, 1}}, 8)
	m := rows(t, data)
	backend := NewNative(nil)
	p := cluster.ReduceParams{NNeighbors: 5, MinDist: 0.1, NComponents: 2, Metric: matrix.Euclidean, Seed: cluster.Seed(42), Epochs: 50}

	first, err := backend.Reduce(context.Background(), m, p)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	if first.Rows() != 24 || first.Dims() != 2 {
		t.Fatalf("Expected 24x2, got %dx%d", first.Rows(), first.Dims())
	}

	second, err := backend.Reduce(context.Background(), m, p)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < first.Rows(); i++ {
		for j := 0; j < first.Dims(); j++ {
			v := first.Row(i)[j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("Non-finite coordinate at %d,%d", i, j)
			}
			if v != second.Row(i)[j] {
				t.Fatalf("Expected identical layouts for the same seed")
			}
		}
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := rows(t, [][]float64{{0, 0}, {1, 1}, {2, 2}})
	dist := matrix.Pairwise(m, matrix.Euclidean)

	if _, err := dbscan(ctx, dist, 1, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("dbscan: expected context.Canceled, got %v", err)
	}
	if _, err := agglomerative(ctx, dist, cluster.Single, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("agglomerative: expected context.Canceled, got %v", err)
	}
	if _, err := kmeans(ctx, m, 2, 0, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("kmeans: expected context.Canceled, got %v", err)
	}
}
