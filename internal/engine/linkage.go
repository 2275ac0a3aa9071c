package engine

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/yildizm/feedcluster/internal/cluster"
)

// merge joins the clusters holding points a and b at the given height
type merge struct {
	a, b   int
	height float64
}

// condensed stores the strict upper triangle of a symmetric matrix
type condensed struct {
	n    int
	data []float64
}

func newCondensed(dist mat.Symmetric, square bool) *condensed {
	n := dist.SymmetricDim()
	c := &condensed{n: n, data: make([]float64, n*(n-1)/2)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist.At(i, j)
			if square {
				d *= d
			}
			c.data[c.index(i, j)] = d
		}
	}
	return c
}

func (c *condensed) index(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return c.n*i - i*(i+1)/2 + j - i - 1
}

func (c *condensed) at(i, j int) float64 { return c.data[c.index(i, j)] }

func (c *condensed) set(i, j int, v float64) { c.data[c.index(i, j)] = v }

// agglomerative builds the full merge tree with the nearest-neighbor chain
// algorithm and cuts it at nClusters. Ward works on squared euclidean
// distances through the Lance-Williams update.
func agglomerative(ctx context.Context, dist mat.Symmetric, linkage cluster.Linkage, nClusters int) ([]int, error) {
	n := dist.SymmetricDim()
	if n == 0 {
		return nil, nil
	}
	merges, err := nnChain(ctx, newCondensed(dist, linkage == cluster.Ward), linkage)
	if err != nil {
		return nil, err
	}
	return cutTree(n, merges, nClusters), nil
}

func nnChain(ctx context.Context, d *condensed, linkage cluster.Linkage) ([]merge, error) {
	n := d.n
	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}

	merges := make([]merge, 0, n-1)
	chain := make([]int, 0, n)
	for step := 0; len(merges) < n-1; step++ {
		if err := checkpoint(ctx, step); err != nil {
			return nil, err
		}
		if len(chain) == 0 {
			for i := 0; i < n; i++ {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}

		var a, b int
		var best float64
		for {
			a = chain[len(chain)-1]
			b, best = -1, math.Inf(1)
			if len(chain) > 1 {
				b = chain[len(chain)-2]
				best = d.at(a, b)
			}
			for c := 0; c < n; c++ {
				if !active[c] || c == a {
					continue
				}
				if v := d.at(a, c); v < best {
					b, best = c, v
				}
			}
			if len(chain) > 1 && b == chain[len(chain)-2] {
				break
			}
			chain = append(chain, b)
		}
		chain = chain[:len(chain)-2]

		height := best
		if linkage == cluster.Ward {
			height = math.Sqrt(math.Max(0, best))
		}
		merges = append(merges, merge{a: a, b: b, height: height})

		// the merged cluster lives on in slot b
		for k := 0; k < n; k++ {
			if !active[k] || k == a || k == b {
				continue
			}
			d.set(b, k, lanceWilliams(linkage, d.at(a, k), d.at(b, k), best, size[a], size[b], size[k]))
		}
		active[a] = false
		size[b] += size[a]
	}
	return merges, nil
}

func lanceWilliams(linkage cluster.Linkage, dak, dbk, dab float64, na, nb, nk int) float64 {
	switch linkage {
	case cluster.Single:
		return math.Min(dak, dbk)
	case cluster.Complete:
		return math.Max(dak, dbk)
	case cluster.Average:
		return (float64(na)*dak + float64(nb)*dbk) / float64(na+nb)
	default:
		t := float64(na + nb + nk)
		return (float64(na+nk)*dak + float64(nb+nk)*dbk - float64(nk)*dab) / t
	}
}

// cutTree replays the lowest n-k merges and numbers the resulting clusters
// in order of first appearance
func cutTree(n int, merges []merge, k int) []int {
	k = max(1, min(k, n))
	sorted := append([]merge(nil), merges...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].height < sorted[j].height })

	uf := newUnionFind(n)
	for _, m := range sorted[:n-k] {
		uf.union(m.a, m.b)
	}

	labels := make([]int, n)
	ids := make(map[int]int, k)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels
}

type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y int) int {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return rx
	}
	if uf.size[rx] < uf.size[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	return rx
}
