package engine

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/yildizm/feedcluster/internal/matrix"
)

type umapConfig struct {
	nNeighbors  int
	minDist     float64
	nComponents int
	metric      matrix.Metric
	seed        int64
	epochs      int
}

const (
	umapSpread         = 1.0
	negativeSampleRate = 5
	gradientClip       = 4.0
	smoothKIterations  = 64
	smoothKTolerance   = 1e-5
	minKDistScale      = 1e-3
)

type graphEdge struct {
	head, tail int
	weight     float64
}

// umap embeds m into nComponents dimensions: a fuzzy k-nearest-neighbor
// graph is laid out by stochastic gradient descent from a PCA start.
func umap(ctx context.Context, m *matrix.Matrix, cfg umapConfig) (*matrix.Matrix, error) {
	n := m.Rows()
	rng := rand.New(rand.NewSource(cfg.seed)) // #nosec G404 - reproducible layout, not security

	k := min(max(2, cfg.nNeighbors), n)
	idx, dists := nearestNeighbors(matrix.Pairwise(m, cfg.metric), k)
	edges := fuzzyUnion(n, idx, dists)

	a, b := fitCurve(cfg.minDist, umapSpread)
	layout := initialLayout(m, cfg.nComponents, rng)

	epochs := cfg.epochs
	if epochs == 0 {
		epochs = 500
		if n > 10000 {
			epochs = 200
		}
	}
	if err := optimizeLayout(ctx, layout, edges, a, b, epochs, rng); err != nil {
		return nil, err
	}
	return matrix.FromDense(layout), nil
}

// nearestNeighbors returns the k closest points of every row, the point itself first
func nearestNeighbors(dist mat.Symmetric, k int) ([][]int, [][]float64) {
	n := dist.SymmetricDim()
	idx := make([][]int, n)
	dists := make([][]float64, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(x, y int) bool {
			ox, oy := order[x], order[y]
			if ox == i || oy == i {
				return ox == i && oy != i
			}
			return dist.At(i, ox) < dist.At(i, oy)
		})
		idx[i] = append([]int(nil), order[:k]...)
		dists[i] = make([]float64, k)
		for j, p := range idx[i] {
			dists[i][j] = dist.At(i, p)
		}
	}
	return idx, dists
}

// smoothDistances finds per point the distance to the nearest neighbor (rho)
// and the bandwidth (sigma) that makes the neighborhood weights sum to log2(k)
func smoothDistances(dists [][]float64) (rho, sigma []float64) {
	n := len(dists)
	rho = make([]float64, n)
	sigma = make([]float64, n)

	var meanAll float64
	var count int
	for _, row := range dists {
		for _, d := range row {
			meanAll += d
			count++
		}
	}
	if count > 0 {
		meanAll /= float64(count)
	}

	for i, row := range dists {
		k := len(row)
		target := math.Log2(float64(k))
		for _, d := range row {
			if d > 0 {
				rho[i] = d
				break
			}
		}

		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for iter := 0; iter < smoothKIterations; iter++ {
			psum := 0.0
			for _, d := range row[1:] {
				if r := d - rho[i]; r > 0 {
					psum += math.Exp(-r / mid)
				} else {
					psum++
				}
			}
			if math.Abs(psum-target) < smoothKTolerance {
				break
			}
			if psum > target {
				hi = mid
				mid = (lo + hi) / 2
			} else {
				lo = mid
				if math.IsInf(hi, 1) {
					mid *= 2
				} else {
					mid = (lo + hi) / 2
				}
			}
		}

		floor := minKDistScale * meanAll
		if rho[i] > 0 {
			floor = minKDistScale * floats.Sum(row) / float64(k)
		}
		sigma[i] = math.Max(mid, floor)
	}
	return rho, sigma
}

// fuzzyUnion builds the symmetric membership graph w = a + aᵀ - a∘aᵀ and
// lists both directions of every edge in index order
func fuzzyUnion(n int, idx [][]int, dists [][]float64) []graphEdge {
	rho, sigma := smoothDistances(dists)

	directed := make([]map[int]float64, n)
	for i := range directed {
		directed[i] = make(map[int]float64, len(idx[i]))
		for j, p := range idx[i] {
			if p == i {
				continue
			}
			w := 1.0
			if r := dists[i][j] - rho[i]; r > 0 && sigma[i] > 0 {
				w = math.Exp(-r / sigma[i])
			}
			directed[i][p] = w
		}
	}

	sym := make([]map[int]float64, n)
	for i := range sym {
		sym[i] = make(map[int]float64)
	}
	for i := 0; i < n; i++ {
		for j, w := range directed[i] {
			back := directed[j][i]
			v := w + back - w*back
			sym[i][j] = v
			sym[j][i] = v
		}
	}

	var edges []graphEdge
	for i := 0; i < n; i++ {
		tails := make([]int, 0, len(sym[i]))
		for j := range sym[i] {
			tails = append(tails, j)
		}
		sort.Ints(tails)
		for _, j := range tails {
			if w := sym[i][j]; w > 0 {
				edges = append(edges, graphEdge{head: i, tail: j, weight: w})
			}
		}
	}
	return edges
}

// fitCurve fits 1/(1 + a·x^(2b)) to the target membership curve defined by
// minDist and spread
func fitCurve(minDist, spread float64) (float64, float64) {
	const samples = 300
	xs := make([]float64, samples)
	ys := make([]float64, samples)
	floats.Span(xs, 0, 3*spread)
	for i, x := range xs {
		if x < minDist {
			ys[i] = 1
		} else {
			ys[i] = math.Exp(-(x - minDist) / spread)
		}
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			a, b := math.Abs(p[0]), math.Abs(p[1])
			var sse float64
			for i, x := range xs {
				r := 1/(1+a*math.Pow(x, 2*b)) - ys[i]
				sse += r * r
			}
			return sse
		},
	}
	res, err := optimize.Minimize(problem, []float64{1, 1}, nil, &optimize.NelderMead{})
	if err != nil || res == nil {
		// values for the common min_dist=0.1, spread=1
		return 1.577, 0.895
	}
	return math.Abs(res.X[0]), math.Abs(res.X[1])
}

// initialLayout projects the data on its principal components and rescales
// every coordinate to [0, 10]. Components beyond what PCA can give are
// drawn at random.
func initialLayout(m *matrix.Matrix, nComponents int, rng *rand.Rand) *mat.Dense {
	n, dim := m.Rows(), m.Dims()
	layout := mat.NewDense(n, nComponents, nil)

	filled := 0
	var pc stat.PC
	var vecs mat.Dense
	if n > 1 && pc.PrincipalComponents(m.Dense(), nil) {
		pc.VectorsTo(&vecs)
		_, avail := vecs.Dims()
		filled = min(nComponents, avail)
	}
	if filled > 0 {
		centered := m.Copy()
		for j := 0; j < dim; j++ {
			col := mat.Col(nil, j, centered)
			mean := stat.Mean(col, nil)
			for i := 0; i < n; i++ {
				centered.Set(i, j, col[i]-mean)
			}
		}
		var proj mat.Dense
		proj.Mul(centered, vecs.Slice(0, dim, 0, filled))
		layout.Slice(0, n, 0, filled).(*mat.Dense).Copy(&proj)
	}

	for j := 0; j < nComponents; j++ {
		col := mat.Col(nil, j, layout)
		lo, hi := floats.Min(col), floats.Max(col)
		for i := 0; i < n; i++ {
			v := rng.Float64() * 10
			if j < filled && hi > lo {
				v = 10 * (col[i] - lo) / (hi - lo)
			}
			layout.Set(i, j, v+rng.NormFloat64()*1e-4)
		}
	}
	return layout
}

func optimizeLayout(ctx context.Context, layout *mat.Dense, edges []graphEdge, a, b float64, epochs int, rng *rand.Rand) error {
	n, dim := layout.Dims()
	if len(edges) == 0 {
		return nil
	}

	maxWeight := 0.0
	for _, e := range edges {
		maxWeight = math.Max(maxWeight, e.weight)
	}
	kept := edges[:0:0]
	for _, e := range edges {
		if e.weight >= maxWeight/float64(epochs) {
			kept = append(kept, e)
		}
	}

	perSample := make([]float64, len(kept))
	nextSample := make([]float64, len(kept))
	perNegative := make([]float64, len(kept))
	nextNegative := make([]float64, len(kept))
	for i, e := range kept {
		perSample[i] = maxWeight / e.weight
		nextSample[i] = perSample[i]
		perNegative[i] = perSample[i] / negativeSampleRate
		nextNegative[i] = perNegative[i]
	}

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		alpha := 1 - float64(epoch)/float64(epochs)
		current := float64(epoch)

		for i, e := range kept {
			if nextSample[i] > current {
				continue
			}
			head := layout.RawRowView(e.head)
			tail := layout.RawRowView(e.tail)

			if d := sqDist(head, tail); d > 0 {
				coeff := -2 * a * b * math.Pow(d, b-1) / (a*math.Pow(d, b) + 1)
				for x := 0; x < dim; x++ {
					g := clip(coeff*(head[x]-tail[x])) * alpha
					head[x] += g
					tail[x] -= g
				}
			}
			nextSample[i] += perSample[i]

			negatives := int((current - nextNegative[i]) / perNegative[i])
			for s := 0; s < negatives; s++ {
				other := rng.Intn(n)
				if other == e.head {
					continue
				}
				tail := layout.RawRowView(other)
				d := sqDist(head, tail)
				coeff := 0.0
				if d > 0 {
					coeff = 2 * b / ((0.001 + d) * (a*math.Pow(d, b) + 1))
				}
				for x := 0; x < dim; x++ {
					g := gradientClip
					if coeff > 0 {
						g = clip(coeff * (head[x] - tail[x]))
					}
					head[x] += g * alpha
				}
			}
			nextNegative[i] += float64(negatives) * perNegative[i]
		}
	}
	return nil
}

func clip(v float64) float64 {
	return math.Max(-gradientClip, math.Min(gradientClip, v))
}
