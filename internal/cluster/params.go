package cluster

import (
	"fmt"

	"github.com/yildizm/feedcluster/internal/matrix"
)

// Algorithm identifies a clustering strategy
type Algorithm string

const (
	DBSCAN        Algorithm = "dbscan"
	HDBSCAN       Algorithm = "hdbscan"
	Agglomerative Algorithm = "agglomerative"
	KMeans        Algorithm = "kmeans"
	UMAPDBSCAN    Algorithm = "umap_dbscan"
)

// Algorithms lists every strategy in a stable order
var Algorithms = []Algorithm{DBSCAN, HDBSCAN, Agglomerative, KMeans, UMAPDBSCAN}

// DisplayName is the label used in reports
func (a Algorithm) DisplayName() string {
	switch a {
	case DBSCAN:
		return "DBSCAN"
	case HDBSCAN:
		return "HDBSCAN"
	case Agglomerative:
		return "Agglomerative"
	case KMeans:
		return "K-Means"
	case UMAPDBSCAN:
		return "UMAP+DBSCAN"
	}
	return string(a)
}

// ParseAlgorithm accepts algorithm names case-sensitively
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range Algorithms {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q", s)
}

// Params is the parameter set of one algorithm variant
type Params interface {
	Algorithm() Algorithm
	// Validate checks the parameters without looking at any data
	Validate() error
	// Describe renders the parameters for reports
	Describe() string
}

// SelectionMethod is how HDBSCAN extracts flat clusters from its tree
type SelectionMethod string

const (
	ExcessOfMass SelectionMethod = "eom"
	Leaf         SelectionMethod = "leaf"
)

// Linkage is the merge criterion of agglomerative clustering
type Linkage string

const (
	Ward     Linkage = "ward"
	Complete Linkage = "complete"
	Average  Linkage = "average"
	Single   Linkage = "single"
)

// Linkages lists the accepted linkage criteria
var Linkages = []Linkage{Ward, Complete, Average, Single}

// DBSCANParams configures density clustering
type DBSCANParams struct {
	Eps        float64       `yaml:"eps" json:"eps"`
	MinSamples int           `yaml:"min_samples" json:"min_samples"`
	Metric     matrix.Metric `yaml:"metric" json:"metric"`
	// Precomputed feeds the backend an N×N distance matrix instead of coordinates
	Precomputed bool `yaml:"precomputed,omitempty" json:"precomputed,omitempty"`
}

func (p DBSCANParams) Algorithm() Algorithm { return DBSCAN }

func (p DBSCANParams) Validate() error {
	if p.Eps <= 0 {
		return configErr(DBSCAN, "eps", p.Eps, "must be positive")
	}
	if p.MinSamples < 1 {
		return configErr(DBSCAN, "min_samples", p.MinSamples, "must be at least 1")
	}
	return validMetric(DBSCAN, p.Metric)
}

func (p DBSCANParams) Describe() string {
	return fmt.Sprintf("eps=%v, min_samp=%d", p.Eps, p.MinSamples)
}

// HDBSCANParams configures hierarchical density clustering
type HDBSCANParams struct {
	MinClusterSize int `yaml:"min_cluster_size" json:"min_cluster_size"`
	// MinSamples of zero uses MinClusterSize
	MinSamples              int             `yaml:"min_samples" json:"min_samples"`
	ClusterSelectionEpsilon float64         `yaml:"cluster_selection_epsilon" json:"cluster_selection_epsilon"`
	ClusterSelectionMethod  SelectionMethod `yaml:"cluster_selection_method" json:"cluster_selection_method"`
	Metric                  matrix.Metric   `yaml:"metric" json:"metric"`
}

func (p HDBSCANParams) Algorithm() Algorithm { return HDBSCAN }

func (p HDBSCANParams) Validate() error {
	if p.MinClusterSize < 2 {
		return configErr(HDBSCAN, "min_cluster_size", p.MinClusterSize, "must be at least 2")
	}
	if p.MinSamples < 0 {
		return configErr(HDBSCAN, "min_samples", p.MinSamples, "must not be negative")
	}
	if p.ClusterSelectionEpsilon < 0 {
		return configErr(HDBSCAN, "cluster_selection_epsilon", p.ClusterSelectionEpsilon, "must not be negative")
	}
	switch p.ClusterSelectionMethod {
	case ExcessOfMass, Leaf:
	default:
		return configErr(HDBSCAN, "cluster_selection_method", p.ClusterSelectionMethod, "expected eom or leaf")
	}
	return validMetric(HDBSCAN, p.Metric)
}

func (p HDBSCANParams) Describe() string {
	return fmt.Sprintf("min_cluster_size=%d, min_samples=%d, eps=%v",
		p.MinClusterSize, p.EffectiveMinSamples(), p.ClusterSelectionEpsilon)
}

// EffectiveMinSamples resolves the MinSamples default
func (p HDBSCANParams) EffectiveMinSamples() int {
	if p.MinSamples == 0 {
		return p.MinClusterSize
	}
	return p.MinSamples
}

// AgglomerativeParams configures hierarchical clustering
type AgglomerativeParams struct {
	NClusters   int           `yaml:"n_clusters" json:"n_clusters"`
	Linkage     Linkage       `yaml:"linkage" json:"linkage"`
	Metric      matrix.Metric `yaml:"metric" json:"metric"`
	Precomputed bool          `yaml:"precomputed,omitempty" json:"precomputed,omitempty"`
}

func (p AgglomerativeParams) Algorithm() Algorithm { return Agglomerative }

func (p AgglomerativeParams) Validate() error {
	if p.NClusters < 1 {
		return configErr(Agglomerative, "n_clusters", p.NClusters, "must be at least 1")
	}
	switch p.Linkage {
	case Ward, Complete, Average, Single:
	default:
		return configErr(Agglomerative, "linkage", p.Linkage, "expected ward, complete, average or single")
	}
	if err := validMetric(Agglomerative, p.Metric); err != nil {
		return err
	}
	if p.Linkage == Ward && p.Precomputed {
		return configErr(Agglomerative, "linkage", p.Linkage, "ward needs coordinates and cannot use precomputed distances")
	}
	if p.Linkage == Ward && p.Metric != matrix.Euclidean {
		return configErr(Agglomerative, "metric", p.Metric, "ward linkage only works with euclidean distances")
	}
	return nil
}

func (p AgglomerativeParams) Describe() string {
	return fmt.Sprintf("n_clust=%d, link=%s", p.NClusters, p.Linkage)
}

// KMeansParams configures centroid clustering. Seed is required so that
// every run can be reproduced on its own.
type KMeansParams struct {
	NClusters int    `yaml:"n_clusters" json:"n_clusters"`
	Seed      *int64 `yaml:"seed" json:"seed"`
	// MaxIter of zero uses 300
	MaxIter int `yaml:"max_iter,omitempty" json:"max_iter,omitempty"`
}

func (p KMeansParams) Algorithm() Algorithm { return KMeans }

func (p KMeansParams) Validate() error {
	if p.NClusters < 1 {
		return configErr(KMeans, "n_clusters", p.NClusters, "must be at least 1")
	}
	if p.Seed == nil {
		return configErr(KMeans, "seed", "<unset>", "a fixed seed is required")
	}
	if p.MaxIter < 0 {
		return configErr(KMeans, "max_iter", p.MaxIter, "must not be negative")
	}
	return nil
}

func (p KMeansParams) Describe() string {
	return fmt.Sprintf("n_clusters=%d", p.NClusters)
}

// ReduceParams configures the manifold reduction stage
type ReduceParams struct {
	NNeighbors  int           `yaml:"n_neighbors" json:"n_neighbors"`
	MinDist     float64       `yaml:"min_dist" json:"min_dist"`
	NComponents int           `yaml:"n_components" json:"n_components"`
	Metric      matrix.Metric `yaml:"metric" json:"metric"`
	Seed        *int64        `yaml:"seed" json:"seed"`
	// Epochs of zero picks a default from the data size
	Epochs int `yaml:"epochs,omitempty" json:"epochs,omitempty"`
}

// UMAPDBSCANParams reduces the embeddings and clusters the result with DBSCAN
type UMAPDBSCANParams struct {
	Reduce ReduceParams `yaml:"reduce" json:"reduce"`
	DBSCAN DBSCANParams `yaml:"dbscan" json:"dbscan"`
}

func (p UMAPDBSCANParams) Algorithm() Algorithm { return UMAPDBSCAN }

func (p UMAPDBSCANParams) Validate() error {
	r := p.Reduce
	if r.NNeighbors < 2 {
		return configErr(UMAPDBSCAN, "n_neighbors", r.NNeighbors, "must be at least 2")
	}
	if r.MinDist < 0 {
		return configErr(UMAPDBSCAN, "min_dist", r.MinDist, "must not be negative")
	}
	if r.NComponents < 1 {
		return configErr(UMAPDBSCAN, "n_components", r.NComponents, "must be at least 1")
	}
	if r.Seed == nil {
		return configErr(UMAPDBSCAN, "seed", "<unset>", "a fixed seed is required")
	}
	if r.Epochs < 0 {
		return configErr(UMAPDBSCAN, "epochs", r.Epochs, "must not be negative")
	}
	if err := validMetric(UMAPDBSCAN, r.Metric); err != nil {
		return err
	}
	if err := p.DBSCAN.Validate(); err != nil {
		return fmt.Errorf("dbscan stage: %w", err)
	}
	return nil
}

func (p UMAPDBSCANParams) Describe() string {
	return fmt.Sprintf("n_neighbors=%d, min_dist=%v, n_components=%d, %s",
		p.Reduce.NNeighbors, p.Reduce.MinDist, p.Reduce.NComponents, p.DBSCAN.Describe())
}

// Seed returns a pointer for the Seed fields
func Seed(v int64) *int64 {
	return &v
}

func validMetric(algo Algorithm, m matrix.Metric) error {
	if m == "" {
		return configErr(algo, "metric", "<unset>", "a metric is required (euclidean or cosine)")
	}
	if _, err := matrix.ParseMetric(string(m)); err != nil {
		return configErr(algo, "metric", m, "expected euclidean or cosine")
	}
	return nil
}
