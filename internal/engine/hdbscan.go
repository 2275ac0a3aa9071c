package engine

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

type hdbscanConfig struct {
	minClusterSize int
	minSamples     int
	epsilon        float64
	leaf           bool
}

// linkNode is an internal node of the single linkage tree; node n+i is row i
type linkNode struct {
	left, right int
	dist        float64
	size        int
}

// treeEdge is one row of the condensed tree
type treeEdge struct {
	parent, child int
	lambda        float64
	size          int
}

// zero distances would give infinite lambdas
const minLambdaDistance = 1e-10

// hdbscan runs HDBSCAN over a distance matrix: mutual reachability,
// minimum spanning tree, condensed tree, then flat cluster extraction.
// The root is never selected as a cluster.
func hdbscan(ctx context.Context, dist mat.Symmetric, cfg hdbscanConfig) ([]int, error) {
	n := dist.SymmetricDim()
	if n < 2 || cfg.minClusterSize > n {
		return fillNoise(n), nil
	}

	core, err := coreDistances(ctx, dist, cfg.minSamples)
	if err != nil {
		return nil, err
	}
	edges, err := primMST(ctx, dist, core)
	if err != nil {
		return nil, err
	}
	tree := condenseTree(singleLinkage(n, edges), cfg.minClusterSize)
	selected := selectClusters(tree, n, cfg)
	return labelPoints(tree, n, selected), nil
}

func fillNoise(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = noise
	}
	return out
}

// coreDistances is the distance to the k-th nearest neighbor, counting the point itself
func coreDistances(ctx context.Context, dist mat.Symmetric, k int) ([]float64, error) {
	n := dist.SymmetricDim()
	k = max(1, min(k, n))
	core := make([]float64, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}
		for j := 0; j < n; j++ {
			row[j] = dist.At(i, j)
		}
		sort.Float64s(row)
		core[i] = row[k-1]
	}
	return core, nil
}

type mstEdge struct {
	from, to int
	weight   float64
}

// primMST builds the minimum spanning tree of the mutual reachability graph
func primMST(ctx context.Context, dist mat.Symmetric, core []float64) ([]mstEdge, error) {
	n := len(core)
	inTree := make([]bool, n)
	best := make([]float64, n)
	from := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[0] = true
	for step := 1; step < n; step++ {
		if err := checkpoint(ctx, step); err != nil {
			return nil, err
		}
		next, nextDist := -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			reach := math.Max(dist.At(current, j), math.Max(core[current], core[j]))
			if reach < best[j] {
				best[j] = reach
				from[j] = current
			}
			if best[j] < nextDist {
				next, nextDist = j, best[j]
			}
		}
		inTree[next] = true
		edges = append(edges, mstEdge{from: from[next], to: next, weight: nextDist})
		current = next
	}
	return edges, nil
}

func singleLinkage(n int, edges []mstEdge) []linkNode {
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].weight < edges[j].weight })

	// node ids: points 0..n-1, merges n..2n-2
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	nodes := make([]linkNode, 0, n-1)
	sizeOf := func(id int) int {
		if id < n {
			return 1
		}
		return nodes[id-n].size
	}
	for _, e := range edges {
		a, b := find(e.from), find(e.to)
		id := n + len(nodes)
		nodes = append(nodes, linkNode{left: a, right: b, dist: e.weight, size: sizeOf(a) + sizeOf(b)})
		parent[a] = id
		parent[b] = id
	}
	return nodes
}

// descendants lists node and everything below it in breadth-first order
func descendants(nodes []linkNode, n, node int) []int {
	out := []int{node}
	for i := 0; i < len(out); i++ {
		if id := out[i]; id >= n {
			out = append(out, nodes[id-n].left, nodes[id-n].right)
		}
	}
	return out
}

func condenseTree(nodes []linkNode, minClusterSize int) []treeEdge {
	n := len(nodes) + 1
	root := 2*n - 2
	relabel := make([]int, root+1)
	relabel[root] = n
	nextLabel := n + 1
	ignore := make([]bool, root+1)

	sizeOf := func(id int) int {
		if id < n {
			return 1
		}
		return nodes[id-n].size
	}

	var tree []treeEdge
	fallOut := func(parent, sub int, lambda float64) {
		for _, id := range descendants(nodes, n, sub) {
			if id < n {
				tree = append(tree, treeEdge{parent: parent, child: id, lambda: lambda, size: 1})
			}
			ignore[id] = true
		}
	}

	for _, node := range descendants(nodes, n, root) {
		if ignore[node] || node < n {
			continue
		}
		ln := nodes[node-n]
		lambda := 1 / math.Max(ln.dist, minLambdaDistance)
		leftCount, rightCount := sizeOf(ln.left), sizeOf(ln.right)
		label := relabel[node]

		switch {
		case leftCount >= minClusterSize && rightCount >= minClusterSize:
			relabel[ln.left] = nextLabel
			nextLabel++
			tree = append(tree, treeEdge{parent: label, child: relabel[ln.left], lambda: lambda, size: leftCount})
			relabel[ln.right] = nextLabel
			nextLabel++
			tree = append(tree, treeEdge{parent: label, child: relabel[ln.right], lambda: lambda, size: rightCount})
		case leftCount < minClusterSize && rightCount < minClusterSize:
			fallOut(label, ln.left, lambda)
			fallOut(label, ln.right, lambda)
		case leftCount < minClusterSize:
			relabel[ln.right] = label
			fallOut(label, ln.left, lambda)
		default:
			relabel[ln.left] = label
			fallOut(label, ln.right, lambda)
		}
	}
	return tree
}

func stabilities(tree []treeEdge, root int) map[int]float64 {
	births := map[int]float64{root: 0}
	for _, e := range tree {
		births[e.child] = e.lambda
	}
	stability := make(map[int]float64)
	for _, e := range tree {
		stability[e.parent] += (e.lambda - births[e.parent]) * float64(e.size)
	}
	return stability
}

// clusterTree holds only the cluster-to-cluster edges of a condensed tree
type clusterTree struct {
	children map[int][]int
	parent   map[int]int
	birth    map[int]float64
	root     int
}

func newClusterTree(tree []treeEdge, root int) *clusterTree {
	ct := &clusterTree{
		children: make(map[int][]int),
		parent:   make(map[int]int),
		birth:    make(map[int]float64),
		root:     root,
	}
	for _, e := range tree {
		if e.size > 1 {
			ct.children[e.parent] = append(ct.children[e.parent], e.child)
			ct.parent[e.child] = e.parent
			ct.birth[e.child] = e.lambda
		}
	}
	return ct
}

func (ct *clusterTree) below(node int) []int {
	out := []int{node}
	for i := 0; i < len(out); i++ {
		out = append(out, ct.children[out[i]]...)
	}
	return out
}

func (ct *clusterTree) leaves() []int {
	if len(ct.parent) == 0 {
		return nil
	}
	var out []int
	for _, id := range ct.below(ct.root) {
		if len(ct.children[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// epsilonSearch replaces clusters born below epsilon with the first
// ancestor born above it, never climbing to the root
func (ct *clusterTree) epsilonSearch(candidates []int, epsilon float64) map[int]bool {
	selected := make(map[int]bool)
	processed := make(map[int]bool)
	for _, leaf := range candidates {
		if processed[leaf] {
			continue
		}
		if 1/ct.birth[leaf] >= epsilon {
			selected[leaf] = true
			continue
		}
		chosen := ct.climb(leaf, epsilon)
		selected[chosen] = true
		for _, sub := range ct.below(chosen) {
			if sub != chosen {
				processed[sub] = true
			}
		}
	}
	return selected
}

func (ct *clusterTree) climb(node int, epsilon float64) int {
	for {
		parent := ct.parent[node]
		if parent == ct.root {
			return node
		}
		if 1/ct.birth[parent] > epsilon {
			return parent
		}
		node = parent
	}
}

func selectClusters(tree []treeEdge, n int, cfg hdbscanConfig) map[int]bool {
	root := n
	ct := newClusterTree(tree, root)
	stability := stabilities(tree, root)

	nodes := make([]int, 0, len(stability))
	for id := range stability {
		if id != root {
			nodes = append(nodes, id)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(nodes)))

	isCluster := make(map[int]bool, len(nodes))
	for _, id := range nodes {
		isCluster[id] = true
	}

	if cfg.leaf {
		chosen := make(map[int]bool)
		leaves := ct.leaves()
		if cfg.epsilon != 0 {
			chosen = ct.epsilonSearch(leaves, cfg.epsilon)
		} else {
			for _, id := range leaves {
				chosen[id] = true
			}
		}
		for id := range isCluster {
			isCluster[id] = chosen[id]
		}
		return isCluster
	}

	for _, id := range nodes {
		var subtree float64
		for _, child := range ct.children[id] {
			subtree += stability[child]
		}
		if subtree > stability[id] {
			isCluster[id] = false
			stability[id] = subtree
			continue
		}
		for _, sub := range ct.below(id) {
			if sub != id {
				isCluster[sub] = false
			}
		}
	}

	if cfg.epsilon != 0 && len(ct.parent) > 0 {
		var eom []int
		for _, id := range nodes {
			if isCluster[id] {
				eom = append(eom, id)
			}
		}
		chosen := ct.epsilonSearch(eom, cfg.epsilon)
		for id := range isCluster {
			isCluster[id] = chosen[id]
		}
	}
	return isCluster
}

// labelPoints walks every point up the condensed tree to its selected
// cluster; points that reach the root are noise. Clusters are numbered in
// ascending order of their tree label.
func labelPoints(tree []treeEdge, n int, isCluster map[int]bool) []int {
	parent := make(map[int]int, len(tree))
	for _, e := range tree {
		parent[e.child] = e.parent
	}

	var ids []int
	for id, ok := range isCluster {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	labelOf := make(map[int]int, len(ids))
	for i, id := range ids {
		labelOf[id] = i
	}

	labels := fillNoise(n)
	for p := 0; p < n; p++ {
		node, ok := parent[p]
		for ok {
			if l, selected := labelOf[node]; selected {
				labels[p] = l
				break
			}
			node, ok = parent[node]
		}
	}
	return labels
}
