package stats

import (
	"testing"

	"github.com/yildizm/feedcluster/internal/cluster"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		labels     []int
		identities []string
		want       Summary
	}{
		{
			name:       "single cluster with an outlier",
			labels:     []int{0, 0, -1},
			identities: []string{"A", "B", "C"},
			want:       Summary{NClusters: 1, NOutliers: 1, NIdentitiesUnion: 2, AvgIdentitiesPerCluster: 2.0},
		},
		{
			name:       "no outliers",
			labels:     []int{4, 4, 9, 9, 9},
			identities: []string{"A", "A", "B", "C", "B"},
			want:       Summary{NClusters: 2, NOutliers: 0, NIdentitiesUnion: 3, AvgIdentitiesPerCluster: 1.5},
		},
		{
			name:       "all outliers",
			labels:     []int{-1, -1, -1},
			identities: []string{"A", "B", "C"},
			want:       Summary{NClusters: 0, NOutliers: 3},
		},
		{
			name:       "empty",
			labels:     []int{},
			identities: []string{},
			want:       Summary{},
		},
		{
			name:       "shared identity counted once in union",
			labels:     []int{0, 1, 2},
			identities: []string{"A", "A", "B"},
			want:       Summary{NClusters: 3, NIdentitiesUnion: 2, AvgIdentitiesPerCluster: 1.0},
		},
		{
			name:       "average rounded to two places",
			labels:     []int{0, 0, 1, 2},
			identities: []string{"A", "B", "C", "D"},
			want:       Summary{NClusters: 3, NIdentitiesUnion: 4, AvgIdentitiesPerCluster: 1.33},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(cluster.FromInts(tt.labels), tt.identities)
			if err != nil {
				t.Fatalf("Summarize failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestSummarizeLengthMismatch(t *testing.T) {
	if _, err := Summarize(cluster.FromInts([]int{0, 1}), []string{"A"}); err == nil {
		t.Error("Expected error for misaligned identities")
	}
}

func TestUnionBounds(t *testing.T) {
	labels := []int{0, 0, 1, 1, 1, 2, -1, 2}
	identities := []string{"A", "B", "B", "C", "D", "A", "Z", "E"}

	m, err := BuildMembership(cluster.FromInts(labels), identities)
	if err != nil {
		t.Fatal(err)
	}
	s := m.Summary()

	sum, maxUnique := 0, 0
	for _, id := range m.ClusterIDs() {
		u := m.UniqueIdentities(id)
		sum += u
		maxUnique = max(maxUnique, u)
	}
	if s.NIdentitiesUnion > sum || s.NIdentitiesUnion < maxUnique {
		t.Errorf("Union %d outside [%d, %d]", s.NIdentitiesUnion, maxUnique, sum)
	}
	if s.NIdentitiesUnion != 5 {
		t.Errorf("Expected union of 5 identities, got %d", s.NIdentitiesUnion)
	}
}

func TestSummarizeIsPure(t *testing.T) {
	a := cluster.FromInts([]int{3, -1, 3, 7, 7, 7})
	identities := []string{"A", "B", "C", "A", "A", "D"}

	first, err := Summarize(a, identities)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Summarize(a, identities)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Expected identical summaries, got %+v and %+v", first, second)
	}
}

func TestMembership(t *testing.T) {
	m, err := BuildMembership(cluster.FromInts([]int{5, -1, 2, 5}), []string{"Y", "X", "Z", "W"})
	if err != nil {
		t.Fatal(err)
	}

	ids := m.ClusterIDs()
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 5 {
		t.Errorf("Expected cluster ids [2 5], got %v", ids)
	}
	if got := m.Identities(5); len(got) != 2 || got[0] != "W" || got[1] != "Y" {
		t.Errorf("Expected sorted identities [W Y], got %v", got)
	}
	if got := m.Members(5); len(got) != 2 || got[0] != 0 || got[1] != 3 {
		t.Errorf("Expected members [0 3], got %v", got)
	}
	if got := m.Outliers(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected outliers [1], got %v", got)
	}
}
