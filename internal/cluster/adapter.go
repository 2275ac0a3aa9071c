package cluster

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/yildizm/feedcluster/internal/matrix"
)

// Input is what a backend clusters: coordinates, or a precomputed N×N
// distance matrix when Distances is set.
type Input struct {
	Points    *matrix.Matrix
	Distances *mat.SymDense
}

// Len returns the number of points
func (in Input) Len() int {
	if in.Distances != nil {
		return in.Distances.SymmetricDim()
	}
	return in.Points.Rows()
}

// Backend supplies the numerical algorithms. Every clustering call returns
// one label per input row, with negative labels meaning "no assignment".
type Backend interface {
	Name() string
	DBSCAN(ctx context.Context, in Input, p DBSCANParams) ([]int, error)
	HDBSCAN(ctx context.Context, m *matrix.Matrix, p HDBSCANParams) ([]int, error)
	Agglomerative(ctx context.Context, in Input, p AgglomerativeParams) ([]int, error)
	KMeans(ctx context.Context, m *matrix.Matrix, p KMeansParams) ([]int, error)
	Reduce(ctx context.Context, m *matrix.Matrix, p ReduceParams) (*matrix.Matrix, error)
}

// Adapter exposes one clustering strategy through a uniform call
type Adapter interface {
	Algorithm() Algorithm
	// SupportsPrecomputed reports whether the strategy can work from a
	// distance matrix instead of coordinates
	SupportsPrecomputed() bool
	// EmitsOutliers reports whether the strategy can leave points unassigned
	EmitsOutliers() bool
	FitPredict(ctx context.Context, m *matrix.Matrix, p Params) ([]int, error)
}

// NewAdapter returns the adapter for algo running on backend
func NewAdapter(algo Algorithm, backend Backend) (Adapter, error) {
	switch algo {
	case DBSCAN:
		return &dbscanAdapter{backend: backend}, nil
	case HDBSCAN:
		return &hdbscanAdapter{backend: backend}, nil
	case Agglomerative:
		return &agglomerativeAdapter{backend: backend}, nil
	case KMeans:
		return &kmeansAdapter{backend: backend}, nil
	case UMAPDBSCAN:
		return &pipelineAdapter{backend: backend, density: &dbscanAdapter{backend: backend}}, nil
	}
	return nil, fmt.Errorf("unknown algorithm %q", algo)
}

// Fit validates p, runs the matching adapter on m and normalizes the labels
func Fit(ctx context.Context, backend Backend, m *matrix.Matrix, p Params) (Assignment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	adapter, err := NewAdapter(p.Algorithm(), backend)
	if err != nil {
		return nil, err
	}
	raw, err := adapter.FitPredict(ctx, m, p)
	if err != nil {
		return nil, err
	}
	if len(raw) != m.Rows() {
		return nil, fmt.Errorf("%s: backend %s returned %d labels for %d records",
			p.Algorithm(), backend.Name(), len(raw), m.Rows())
	}
	return Normalize(p.Algorithm(), raw, adapter.EmitsOutliers())
}

func paramsAs[T Params](algo Algorithm, p Params) (T, error) {
	typed, ok := p.(T)
	if !ok {
		var zero T
		return zero, configErr(algo, "", nil, fmt.Sprintf("unexpected parameter set for %s", p.Algorithm()))
	}
	return typed, nil
}

type dbscanAdapter struct{ backend Backend }

func (a *dbscanAdapter) Algorithm() Algorithm      { return DBSCAN }
func (a *dbscanAdapter) SupportsPrecomputed() bool { return true }
func (a *dbscanAdapter) EmitsOutliers() bool       { return true }

func (a *dbscanAdapter) FitPredict(ctx context.Context, m *matrix.Matrix, p Params) ([]int, error) {
	params, err := paramsAs[DBSCANParams](DBSCAN, p)
	if err != nil {
		return nil, err
	}
	in := Input{Points: m}
	if params.Precomputed {
		in.Distances = matrix.Pairwise(m, params.Metric)
	}
	return a.backend.DBSCAN(ctx, in, params)
}

type hdbscanAdapter struct{ backend Backend }

func (a *hdbscanAdapter) Algorithm() Algorithm      { return HDBSCAN }
func (a *hdbscanAdapter) SupportsPrecomputed() bool { return false }
func (a *hdbscanAdapter) EmitsOutliers() bool       { return true }

func (a *hdbscanAdapter) FitPredict(ctx context.Context, m *matrix.Matrix, p Params) ([]int, error) {
	params, err := paramsAs[HDBSCANParams](HDBSCAN, p)
	if err != nil {
		return nil, err
	}
	if params.MinClusterSize > m.Rows() {
		// nothing can form a cluster; every point is noise
		return allOutliers(m.Rows()), nil
	}
	return a.backend.HDBSCAN(ctx, m, params)
}

type agglomerativeAdapter struct{ backend Backend }

func (a *agglomerativeAdapter) Algorithm() Algorithm      { return Agglomerative }
func (a *agglomerativeAdapter) SupportsPrecomputed() bool { return true }
func (a *agglomerativeAdapter) EmitsOutliers() bool       { return false }

func (a *agglomerativeAdapter) FitPredict(ctx context.Context, m *matrix.Matrix, p Params) ([]int, error) {
	params, err := paramsAs[AgglomerativeParams](Agglomerative, p)
	if err != nil {
		return nil, err
	}
	if params.NClusters > m.Rows() {
		return nil, configErr(Agglomerative, "n_clusters", params.NClusters,
			fmt.Sprintf("cannot exceed the number of records (%d)", m.Rows()))
	}
	in := Input{Points: m}
	if params.Precomputed {
		in.Distances = matrix.Pairwise(m, params.Metric)
	}
	return a.backend.Agglomerative(ctx, in, params)
}

type kmeansAdapter struct{ backend Backend }

func (a *kmeansAdapter) Algorithm() Algorithm      { return KMeans }
func (a *kmeansAdapter) SupportsPrecomputed() bool { return false }
func (a *kmeansAdapter) EmitsOutliers() bool       { return false }

func (a *kmeansAdapter) FitPredict(ctx context.Context, m *matrix.Matrix, p Params) ([]int, error) {
	params, err := paramsAs[KMeansParams](KMeans, p)
	if err != nil {
		return nil, err
	}
	if params.NClusters > m.Rows() {
		return nil, configErr(KMeans, "n_clusters", params.NClusters,
			fmt.Sprintf("cannot exceed the number of records (%d)", m.Rows()))
	}
	return a.backend.KMeans(ctx, m, params)
}

// pipelineAdapter reduces the embeddings before handing them to DBSCAN
type pipelineAdapter struct {
	backend Backend
	density *dbscanAdapter
}

func (a *pipelineAdapter) Algorithm() Algorithm      { return UMAPDBSCAN }
func (a *pipelineAdapter) SupportsPrecomputed() bool { return false }
func (a *pipelineAdapter) EmitsOutliers() bool       { return true }

func (a *pipelineAdapter) FitPredict(ctx context.Context, m *matrix.Matrix, p Params) ([]int, error) {
	params, err := paramsAs[UMAPDBSCANParams](UMAPDBSCAN, p)
	if err != nil {
		return nil, err
	}
	if params.Reduce.NNeighbors >= m.Rows() {
		return nil, configErr(UMAPDBSCAN, "n_neighbors", params.Reduce.NNeighbors,
			fmt.Sprintf("must be smaller than the number of records (%d)", m.Rows()))
	}
	reduced, err := a.backend.Reduce(ctx, m, params.Reduce)
	if err != nil {
		return nil, fmt.Errorf("reduction failed: %w", err)
	}
	if reduced.Rows() != m.Rows() {
		return nil, fmt.Errorf("reduction returned %d rows for %d records", reduced.Rows(), m.Rows())
	}
	return a.density.FitPredict(ctx, reduced, params.DBSCAN)
}

func allOutliers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = Sentinel
	}
	return out
}
