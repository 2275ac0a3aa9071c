// Package stats computes comparable summaries of a cluster assignment.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/yildizm/feedcluster/internal/cluster"
)

// Summary describes one clustering run
type Summary struct {
	NClusters               int     `json:"n_clusters"`
	NOutliers               int     `json:"n_outliers"`
	NIdentitiesUnion        int     `json:"n_customers_union"`
	AvgIdentitiesPerCluster float64 `json:"avg_customers_per_cluster"`
}

// Membership maps every non-outlier cluster to its members and distinct
// identities. It is built in one pass and not modified afterwards.
type Membership struct {
	members    map[int][]int
	identities map[int]map[string]struct{}
	outliers   []int
	ids        []int
}

// BuildMembership groups record positions by cluster. identities must be
// aligned with the assignment.
func BuildMembership(a cluster.Assignment, identities []string) (*Membership, error) {
	if len(a) != len(identities) {
		return nil, fmt.Errorf("assignment has %d labels but %d identities were given", len(a), len(identities))
	}

	m := &Membership{
		members:    make(map[int][]int),
		identities: make(map[int]map[string]struct{}),
	}
	for i, label := range a {
		id, ok := label.ID()
		if !ok {
			m.outliers = append(m.outliers, i)
			continue
		}
		set, exists := m.identities[id]
		if !exists {
			set = make(map[string]struct{})
			m.identities[id] = set
			m.ids = append(m.ids, id)
		}
		set[identities[i]] = struct{}{}
		m.members[id] = append(m.members[id], i)
	}
	sort.Ints(m.ids)
	return m, nil
}

// ClusterIDs returns the non-outlier cluster ids in ascending order
func (m *Membership) ClusterIDs() []int {
	return append([]int(nil), m.ids...)
}

// Members returns the record positions of cluster id
func (m *Membership) Members(id int) []int {
	return append([]int(nil), m.members[id]...)
}

// Outliers returns the positions of unassigned records
func (m *Membership) Outliers() []int {
	return append([]int(nil), m.outliers...)
}

// UniqueIdentities returns how many distinct identities cluster id holds
func (m *Membership) UniqueIdentities(id int) int {
	return len(m.identities[id])
}

// Identities returns the distinct identities of cluster id, sorted
func (m *Membership) Identities(id int) []string {
	out := make([]string, 0, len(m.identities[id]))
	for name := range m.identities[id] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Summary derives the run statistics
func (m *Membership) Summary() Summary {
	s := Summary{NClusters: len(m.ids), NOutliers: len(m.outliers)}
	if s.NClusters == 0 {
		return s
	}

	union := make(map[string]struct{})
	total := 0
	for _, id := range m.ids {
		total += len(m.identities[id])
		for name := range m.identities[id] {
			union[name] = struct{}{}
		}
	}
	s.NIdentitiesUnion = len(union)
	s.AvgIdentitiesPerCluster = round2(float64(total) / float64(s.NClusters))
	return s
}

// Summarize computes the summary of an assignment. A run that found no
// clusters yields a zero summary that still counts its outliers.
func Summarize(a cluster.Assignment, identities []string) (Summary, error) {
	m, err := BuildMembership(a, identities)
	if err != nil {
		return Summary{}, err
	}
	return m.Summary(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
