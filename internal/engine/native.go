// Package engine implements the clustering backends.
//
// Native runs every algorithm in process on top of gonum. Density and
// hierarchical algorithms work from one N×N distance matrix, so memory grows
// quadratically with the number of records; the remote backend is the way
// out for corpora that do not fit.
package engine

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/logger"
	"github.com/yildizm/feedcluster/internal/matrix"
)

// Native is the in-process backend
type Native struct {
	log *logger.Logger
}

// NewNative creates the in-process backend. log may be nil.
func NewNative(log *logger.Logger) *Native {
	return &Native{log: log.WithComponent("engine")}
}

// Name implements cluster.Backend
func (n *Native) Name() string { return "native" }

// DBSCAN implements cluster.Backend
func (n *Native) DBSCAN(ctx context.Context, in cluster.Input, p cluster.DBSCANParams) ([]int, error) {
	defer n.trace("dbscan", time.Now())
	return dbscan(ctx, distancesOf(in, p.Metric), p.Eps, p.MinSamples)
}

// HDBSCAN implements cluster.Backend
func (n *Native) HDBSCAN(ctx context.Context, m *matrix.Matrix, p cluster.HDBSCANParams) ([]int, error) {
	defer n.trace("hdbscan", time.Now())
	return hdbscan(ctx, matrix.Pairwise(m, p.Metric), hdbscanConfig{
		minClusterSize: p.MinClusterSize,
		minSamples:     p.EffectiveMinSamples(),
		epsilon:        p.ClusterSelectionEpsilon,
		leaf:           p.ClusterSelectionMethod == cluster.Leaf,
	})
}

// Agglomerative implements cluster.Backend
func (n *Native) Agglomerative(ctx context.Context, in cluster.Input, p cluster.AgglomerativeParams) ([]int, error) {
	defer n.trace("agglomerative", time.Now())
	return agglomerative(ctx, distancesOf(in, p.Metric), p.Linkage, p.NClusters)
}

// KMeans implements cluster.Backend
func (n *Native) KMeans(ctx context.Context, m *matrix.Matrix, p cluster.KMeansParams) ([]int, error) {
	defer n.trace("kmeans", time.Now())
	maxIter := p.MaxIter
	if maxIter == 0 {
		maxIter = 300
	}
	return kmeans(ctx, m, p.NClusters, *p.Seed, maxIter)
}

// Reduce implements cluster.Backend
func (n *Native) Reduce(ctx context.Context, m *matrix.Matrix, p cluster.ReduceParams) (*matrix.Matrix, error) {
	defer n.trace("umap", time.Now())
	return umap(ctx, m, umapConfig{
		nNeighbors:  p.NNeighbors,
		minDist:     p.MinDist,
		nComponents: p.NComponents,
		metric:      p.Metric,
		seed:        *p.Seed,
		epochs:      p.Epochs,
	})
}

func (n *Native) trace(algo string, start time.Time) {
	n.log.DebugWithFields("finished", []logger.Field{
		logger.F("algorithm", algo),
		logger.Duration(time.Since(start)),
	})
}

// distancesOf returns the precomputed matrix when one was supplied and
// computes it from the coordinates otherwise
func distancesOf(in cluster.Input, metric matrix.Metric) mat.Symmetric {
	if in.Distances != nil {
		return in.Distances
	}
	return matrix.Pairwise(in.Points, metric)
}

// checkpoint polls ctx every 256 steps
func checkpoint(ctx context.Context, step int) error {
	if step&255 != 0 {
		return nil
	}
	return ctx.Err()
}
