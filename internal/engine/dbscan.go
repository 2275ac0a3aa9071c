package engine

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

const (
	unvisited = -2
	noise     = -1
)

// dbscan labels every point with a cluster id starting at 0, or noise.
// A point is core when at least minSamples points, itself included, lie
// within eps. Border points join the first cluster that reaches them.
func dbscan(ctx context.Context, dist mat.Symmetric, eps float64, minSamples int) ([]int, error) {
	n := dist.SymmetricDim()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}

		neighbors := regionQuery(dist, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = noise
			continue
		}

		labels[i] = next
		queue := neighbors
		for len(queue) > 0 {
			q := queue[0]
			queue = queue[1:]

			if labels[q] == noise {
				labels[q] = next
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = next

			if qn := regionQuery(dist, q, eps); len(qn) >= minSamples {
				queue = append(queue, qn...)
			}
		}
		next++
	}

	return labels, nil
}

func regionQuery(dist mat.Symmetric, idx int, eps float64) []int {
	n := dist.SymmetricDim()
	var result []int
	for j := 0; j < n; j++ {
		if dist.At(idx, j) <= eps {
			result = append(result, j)
		}
	}
	return result
}
