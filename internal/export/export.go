// Package export writes a chosen clustering back onto the records.
package export

import (
	"fmt"
	"sort"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/record"
	"github.com/yildizm/feedcluster/internal/stats"
)

// ClusterLine is one row of the per-cluster console report
type ClusterLine struct {
	ID               int `json:"cluster"`
	Count            int `json:"count"`
	UniqueIdentities int `json:"unique_customers"`
}

// Annotate sets the cluster field of every record and drops its embedding.
// Records are modified in place; other fields keep their order.
func Annotate(records []*record.Record, a cluster.Assignment, embeddingField string) error {
	if len(records) != len(a) {
		return fmt.Errorf("%d labels for %d records", len(a), len(records))
	}
	for i, rec := range records {
		rec.SetInt(record.ClusterField, a[i].Int())
		rec.Delete(embeddingField)
	}
	return nil
}

// Report counts members and distinct identities per cluster, ascending by
// label so outliers (-1) come first
func Report(a cluster.Assignment, identities []string) ([]ClusterLine, error) {
	if len(a) != len(identities) {
		return nil, fmt.Errorf("%d labels for %d identities", len(a), len(identities))
	}

	counts := make(map[int]int)
	unique := make(map[int]map[string]struct{})
	for i, l := range a {
		id := l.Int()
		counts[id]++
		if unique[id] == nil {
			unique[id] = make(map[string]struct{})
		}
		unique[id][identities[i]] = struct{}{}
	}

	lines := make([]ClusterLine, 0, len(counts))
	for id, n := range counts {
		lines = append(lines, ClusterLine{ID: id, Count: n, UniqueIdentities: len(unique[id])})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

// Group gathers the records of one cluster
type Group struct {
	ClusterID         int              `json:"ClusterId"`
	SimilarFeedbacks  int              `json:"SimilarFeedbacks"`
	DistinctCustomers int              `json:"DistinctCustomers"`
	Customers         []string         `json:"Customers"`
	Theme             string           `json:"Theme,omitempty"`
	Summary           string           `json:"Summary,omitempty"`
	Records           []*record.Record `json:"FeedbackRecords"`
}

// Groups builds one group per non-outlier cluster, largest first. Ties keep
// ascending cluster id order. Records are shared with the input slice.
func Groups(records []*record.Record, a cluster.Assignment, identities []string) ([]Group, error) {
	if len(records) != len(a) {
		return nil, fmt.Errorf("%d labels for %d records", len(a), len(records))
	}
	m, err := stats.BuildMembership(a, identities)
	if err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(m.ClusterIDs()))
	for _, id := range m.ClusterIDs() {
		members := m.Members(id)
		g := Group{
			ClusterID:         id,
			SimilarFeedbacks:  len(members),
			DistinctCustomers: m.UniqueIdentities(id),
			Customers:         m.Identities(id),
			Records:           make([]*record.Record, 0, len(members)),
		}
		for _, idx := range members {
			g.Records = append(g.Records, records[idx])
		}
		groups = append(groups, g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].SimilarFeedbacks > groups[j].SimilarFeedbacks
	})
	return groups, nil
}
