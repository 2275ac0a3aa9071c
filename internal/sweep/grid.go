package sweep

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/matrix"
)

// Entry is one (algorithm, parameter set) combination of a sweep
type Entry struct {
	Params cluster.Params
}

// Grid is an ordered list of sweep entries
type Grid []Entry

// gridFile is the on-disk layout of a grid
type gridFile struct {
	Runs []Entry `yaml:"runs"`
}

type entryNode struct {
	Algorithm string    `yaml:"algorithm"`
	Params    yaml.Node `yaml:"params"`
}

// UnmarshalYAML decodes the params block into the variant named by algorithm
func (e *Entry) UnmarshalYAML(value *yaml.Node) error {
	var raw entryNode
	if err := value.Decode(&raw); err != nil {
		return err
	}
	algo, err := cluster.ParseAlgorithm(raw.Algorithm)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	var params cluster.Params
	switch algo {
	case cluster.DBSCAN:
		var p cluster.DBSCANParams
		err = raw.Params.Decode(&p)
		params = p
	case cluster.HDBSCAN:
		p := cluster.HDBSCANParams{ClusterSelectionMethod: cluster.ExcessOfMass}
		err = raw.Params.Decode(&p)
		params = p
	case cluster.Agglomerative:
		var p cluster.AgglomerativeParams
		err = raw.Params.Decode(&p)
		params = p
	case cluster.KMeans:
		var p cluster.KMeansParams
		err = raw.Params.Decode(&p)
		params = p
	case cluster.UMAPDBSCAN:
		var p cluster.UMAPDBSCANParams
		err = raw.Params.Decode(&p)
		params = p
	}
	if err != nil {
		return fmt.Errorf("line %d: invalid %s params: %w", value.Line, algo, err)
	}
	e.Params = params
	return nil
}

// MarshalYAML writes the entry in the layout UnmarshalYAML reads
func (e Entry) MarshalYAML() (interface{}, error) {
	return struct {
		Algorithm string         `yaml:"algorithm"`
		Params    cluster.Params `yaml:"params"`
	}{Algorithm: string(e.Params.Algorithm()), Params: e.Params}, nil
}

// Validate checks every entry before anything runs
func (g Grid) Validate() error {
	if len(g) == 0 {
		return fmt.Errorf("sweep grid is empty")
	}
	for i, e := range g {
		if e.Params == nil {
			return fmt.Errorf("sweep entry %d has no parameters", i)
		}
		if err := e.Params.Validate(); err != nil {
			return fmt.Errorf("sweep entry %d: %w", i, err)
		}
	}
	return nil
}

// ParseGrid decodes a YAML grid
func ParseGrid(data []byte) (Grid, error) {
	var f gridFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sweep grid: %w", err)
	}
	return Grid(f.Runs), nil
}

// LoadGrid reads a YAML grid file
func LoadGrid(path string) (Grid, error) {
	// #nosec G304 - grid path is chosen by the user
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep grid: %w", err)
	}
	return ParseGrid(data)
}

// MarshalGrid renders g as YAML
func MarshalGrid(g Grid) ([]byte, error) {
	return yaml.Marshal(gridFile{Runs: g})
}

// DefaultGrid is the comparison grid used when no grid file is given:
// six DBSCAN, six HDBSCAN, two agglomerative and two k-means runs, all
// in euclidean space.
func DefaultGrid() Grid {
	var g Grid
	for _, p := range []struct {
		eps        float64
		minSamples int
	}{{0.2, 3}, {0.3, 5}, {0.35, 10}, {0.4, 10}, {0.4, 5}, {0.45, 5}} {
		g = append(g, Entry{Params: cluster.DBSCANParams{Eps: p.eps, MinSamples: p.minSamples, Metric: matrix.Euclidean}})
	}
	for _, p := range []struct {
		minClusterSize, minSamples int
		epsilon                    float64
	}{{5, 5, 0}, {10, 10, 0.2}, {10, 5, 0.2}, {5, 5, 0.2}, {5, 5, 0.3}, {5, 5, 0.4}} {
		g = append(g, Entry{Params: cluster.HDBSCANParams{
			MinClusterSize:          p.minClusterSize,
			MinSamples:              p.minSamples,
			ClusterSelectionEpsilon: p.epsilon,
			ClusterSelectionMethod:  cluster.ExcessOfMass,
			Metric:                  matrix.Euclidean,
		}})
	}
	for _, linkage := range []cluster.Linkage{cluster.Average, cluster.Complete} {
		g = append(g, Entry{Params: cluster.AgglomerativeParams{NClusters: 50, Linkage: linkage, Metric: matrix.Euclidean}})
	}
	for _, k := range []int{10, 50} {
		g = append(g, Entry{Params: cluster.KMeansParams{NClusters: k, Seed: cluster.Seed(0)}})
	}
	return g
}
