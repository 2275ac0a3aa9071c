package cluster

import "fmt"

// Sentinel is the integer used for outliers outside this package
const Sentinel = -1

// Label is the cluster assignment of one record: either a non-negative
// cluster id or an outlier.
type Label struct {
	id       int
	assigned bool
}

// Assigned labels a member of cluster id. Negative ids are not clusters.
func Assigned(id int) Label {
	if id < 0 {
		return Outlier()
	}
	return Label{id: id, assigned: true}
}

// Outlier labels a point that belongs to no cluster
func Outlier() Label {
	return Label{}
}

// IsOutlier reports whether the label marks an outlier
func (l Label) IsOutlier() bool {
	return !l.assigned
}

// ID returns the cluster id and whether the label is assigned
func (l Label) ID() (int, bool) {
	return l.id, l.assigned
}

// Int converts the label to the external convention
func (l Label) Int() int {
	if !l.assigned {
		return Sentinel
	}
	return l.id
}

func (l Label) String() string {
	if !l.assigned {
		return "outlier"
	}
	return fmt.Sprintf("cluster %d", l.id)
}

// Assignment holds one label per record, aligned by position
type Assignment []Label

// Ints converts the assignment to the external integer form
func (a Assignment) Ints() []int {
	out := make([]int, len(a))
	for i, l := range a {
		out[i] = l.Int()
	}
	return out
}

// FromInts reads labels in the external form; negative values are outliers
func FromInts(labels []int) Assignment {
	a := make(Assignment, len(labels))
	for i, v := range labels {
		a[i] = Assigned(v)
	}
	return a
}

// Normalize maps raw backend labels into an Assignment. Algorithms that
// never emit outliers must not return negative labels. Non-outlier ids
// are kept as is.
func Normalize(algo Algorithm, raw []int, emitsOutliers bool) (Assignment, error) {
	a := make(Assignment, len(raw))
	for i, v := range raw {
		if v < 0 && !emitsOutliers {
			return nil, fmt.Errorf("%s: record %d got label %d but the algorithm does not produce outliers", algo, i, v)
		}
		a[i] = Assigned(v)
	}
	return a, nil
}
