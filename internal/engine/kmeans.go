package engine

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/yildizm/feedcluster/internal/matrix"
)

// kmeans runs Lloyd's algorithm from a k-means++ start. All randomness
// comes from seed, so equal inputs give equal labels.
func kmeans(ctx context.Context, m *matrix.Matrix, k int, seed int64, maxIter int) ([]int, error) {
	n, dim := m.Rows(), m.Dims()
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 - reproducible clustering, not security

	centroids := kmeansPlusPlus(m, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	counts := make([]int, k)
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for i := 0; i < n; i++ {
			best := nearestCentroid(m.Row(i), centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		for c := range sums {
			counts[c] = 0
			for d := range sums[c] {
				sums[c][d] = 0
			}
		}
		for i := 0; i < n; i++ {
			floats.Add(sums[labels[i]], m.Row(i))
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				// an empty cluster takes over the point furthest from its centroid
				far := farthestPoint(m, labels, centroids)
				copy(centroids[c], m.Row(far))
				labels[far] = c
				continue
			}
			floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
		}
	}
	return labels, nil
}

func kmeansPlusPlus(m *matrix.Matrix, k int, rng *rand.Rand) [][]float64 {
	n := m.Rows()
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), m.Row(rng.Intn(n))...))

	closest := make([]float64, n)
	for i := range closest {
		closest[i] = math.Inf(1)
	}
	for len(centroids) < k {
		last := centroids[len(centroids)-1]
		total := 0.0
		for i := 0; i < n; i++ {
			d := sqDist(m.Row(i), last)
			if d < closest[i] {
				closest[i] = d
			}
			total += closest[i]
		}

		next := 0
		if total > 0 {
			target := rng.Float64() * total
			cumulative := 0.0
			for i, d := range closest {
				cumulative += d
				if cumulative >= target {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(n)
		}
		centroids = append(centroids, append([]float64(nil), m.Row(next)...))
	}
	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func farthestPoint(m *matrix.Matrix, labels []int, centroids [][]float64) int {
	far, farDist := 0, -1.0
	for i := range labels {
		if d := sqDist(m.Row(i), centroids[labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
