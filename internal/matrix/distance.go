package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Metric names a distance function between embeddings
type Metric string

const (
	Euclidean Metric = "euclidean"
	Cosine    Metric = "cosine"
)

// Metrics lists the supported metrics
var Metrics = []Metric{Euclidean, Cosine}

// ParseMetric validates a metric name
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Euclidean, Cosine:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q (expected euclidean or cosine)", s)
}

// Distance returns the distance between a and b
func (m Metric) Distance(a, b []float64) float64 {
	switch m {
	case Cosine:
		return CosineDistance(a, b)
	default:
		return floats.Distance(a, b, 2)
	}
}

// CosineDistance is 1 - cos(a, b), clamped to [0, 2]. A zero vector is at
// distance 1 from everything.
func CosineDistance(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - floats.Dot(a, b)/(na*nb)
	return math.Min(2, math.Max(0, d))
}

// Pairwise computes the N×N distance matrix for m under metric. The Gram
// matrix is formed with a single rank-k update and rewritten in place.
func Pairwise(m *Matrix, metric Metric) *mat.SymDense {
	n := m.Rows()
	norms := make([]float64, n)
	for i := 0; i < n; i++ {
		norms[i] = floats.Norm(m.Row(i), 2)
	}

	src := m
	if metric == Cosine {
		src = m.Normalized()
	}
	g := mat.NewSymDense(n, nil)
	g.SymOuterK(1, src.dense)

	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = g.At(i, i)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dot := g.At(i, j)
			var d float64
			switch metric {
			case Cosine:
				if norms[i] == 0 || norms[j] == 0 {
					d = 1
				} else {
					d = math.Min(2, math.Max(0, 1-dot))
				}
			default:
				d = math.Sqrt(math.Max(0, diag[i]+diag[j]-2*dot))
			}
			g.SetSym(i, j, d)
		}
		g.SetSym(i, i, 0)
	}
	return g
}
