package cli

import (
	"github.com/spf13/cobra"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/matrix"
)

func newDBSCANCommand() *cobra.Command {
	var (
		opts        clusterOptions
		eps         float64
		minSamples  int
		metric      string
		precomputed bool
	)

	cmd := &cobra.Command{
		Use:   "dbscan",
		Short: "Cluster records with DBSCAN",
		Long: `Group records whose embeddings lie within eps of each other.

Records in sparse regions are marked as outliers (cluster -1).

Examples:
  feedcluster dbscan --input_file feedback.json
  feedcluster dbscan --input_file feedback.json --eps 0.4 --metric cosine --precomputed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClusterCommand(cmd, &opts, cluster.DBSCANParams{
				Eps:         eps,
				MinSamples:  minSamples,
				Metric:      matrix.Metric(metric),
				Precomputed: precomputed,
			})
		},
	}

	addClusterFlags(cmd, &opts, "clustered_records.json")
	cmd.Flags().Float64Var(&eps, "eps", 1.2, "neighborhood radius")
	cmd.Flags().IntVar(&minSamples, "min_samples", 4, "neighbors needed for a core point, self included")
	cmd.Flags().StringVar(&metric, "metric", string(matrix.Euclidean), "distance metric (euclidean, cosine)")
	cmd.Flags().BoolVar(&precomputed, "precomputed", false, "cluster a precomputed N×N distance matrix")

	return cmd
}

func newHDBSCANCommand() *cobra.Command {
	var (
		opts           clusterOptions
		minClusterSize int
		minSamples     int
		epsilon        float64
		method         string
		metric         string
	)

	cmd := &cobra.Command{
		Use:   "hdbscan",
		Short: "Cluster records with HDBSCAN",
		Long: `Build a density hierarchy over the records and extract stable clusters.

Examples:
  feedcluster hdbscan --input_file feedback.json
  feedcluster hdbscan --input_file feedback.json --cluster_selection_method leaf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClusterCommand(cmd, &opts, cluster.HDBSCANParams{
				MinClusterSize:          minClusterSize,
				MinSamples:              minSamples,
				ClusterSelectionEpsilon: epsilon,
				ClusterSelectionMethod:  cluster.SelectionMethod(method),
				Metric:                  matrix.Metric(metric),
			})
		},
	}

	addClusterFlags(cmd, &opts, "hdbscan_clusters.json")
	cmd.Flags().IntVar(&minClusterSize, "min_cluster_size", 5, "smallest group reported as a cluster")
	cmd.Flags().IntVar(&minSamples, "min_samples", 5, "neighbors used for core distances (0 uses min_cluster_size)")
	cmd.Flags().Float64Var(&epsilon, "cluster_selection_epsilon", 0.6, "merge clusters closer than this distance")
	cmd.Flags().StringVar(&method, "cluster_selection_method", string(cluster.ExcessOfMass), "cluster extraction (eom, leaf)")
	cmd.Flags().StringVar(&metric, "metric", string(matrix.Euclidean), "distance metric (euclidean, cosine)")

	return cmd
}

func newAgglomerativeCommand() *cobra.Command {
	var (
		opts        clusterOptions
		nClusters   int
		linkage     string
		metric      string
		precomputed bool
	)

	cmd := &cobra.Command{
		Use:     "agglomerative",
		Aliases: []string{"hc"},
		Short:   "Cluster records with hierarchical agglomerative clustering",
		Long: `Merge records bottom-up until n_clusters groups remain.

Ward linkage needs euclidean coordinates; the other linkages accept
precomputed cosine distances.

Examples:
  feedcluster agglomerative --input_file feedback.json
  feedcluster agglomerative --input_file feedback.json --linkage ward --metric euclidean --precomputed=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClusterCommand(cmd, &opts, cluster.AgglomerativeParams{
				NClusters:   nClusters,
				Linkage:     cluster.Linkage(linkage),
				Metric:      matrix.Metric(metric),
				Precomputed: precomputed,
			})
		},
	}

	addClusterFlags(cmd, &opts, "hc_clusters.json")
	cmd.Flags().IntVar(&nClusters, "n_clusters", 50, "number of clusters to keep")
	cmd.Flags().StringVar(&linkage, "linkage", string(cluster.Average), "merge criterion (ward, complete, average, single)")
	cmd.Flags().StringVar(&metric, "metric", string(matrix.Cosine), "distance metric (euclidean, cosine)")
	cmd.Flags().BoolVar(&precomputed, "precomputed", true, "cluster a precomputed N×N distance matrix")

	return cmd
}

func newKMeansCommand() *cobra.Command {
	var (
		opts      clusterOptions
		nClusters int
		seed      int64
		maxIter   int
	)

	cmd := &cobra.Command{
		Use:   "kmeans",
		Short: "Cluster records with k-means",
		Long: `Partition records into n_clusters groups around centroids.

Every record is assigned; k-means never reports outliers. The seed makes
runs reproducible.

Examples:
  feedcluster kmeans --input_file feedback.json --n_clusters 20 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClusterCommand(cmd, &opts, cluster.KMeansParams{
				NClusters: nClusters,
				Seed:      cluster.Seed(seed),
				MaxIter:   maxIter,
			})
		},
	}

	addClusterFlags(cmd, &opts, "kmeans_clusters.json")
	cmd.Flags().IntVar(&nClusters, "n_clusters", 50, "number of clusters")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for centroid initialization")
	cmd.Flags().IntVar(&maxIter, "max_iter", 0, "maximum Lloyd iterations (0 uses 300)")

	return cmd
}

func newUMAPCommand() *cobra.Command {
	var (
		opts          clusterOptions
		reduce        cluster.ReduceParams
		seed          int64
		reduceMetric  string
		dbscanEps     float64
		dbscanSamples int
		dbscanMetric  string
	)

	cmd := &cobra.Command{
		Use:   "umap",
		Short: "Reduce embeddings with UMAP, then cluster with DBSCAN",
		Long: `Project the embeddings onto n_components dimensions with a seeded
UMAP-style reduction and run DBSCAN on the result.

Examples:
  feedcluster umap --input_file feedback.json
  feedcluster umap --input_file feedback.json --n_components 10 --dbscan_eps 0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reduce.Metric = matrix.Metric(reduceMetric)
			reduce.Seed = cluster.Seed(seed)
			return runClusterCommand(cmd, &opts, cluster.UMAPDBSCANParams{
				Reduce: reduce,
				DBSCAN: cluster.DBSCANParams{
					Eps:        dbscanEps,
					MinSamples: dbscanSamples,
					Metric:     matrix.Metric(dbscanMetric),
				},
			})
		},
	}

	addClusterFlags(cmd, &opts, "umap_clusters.json")
	cmd.Flags().IntVar(&reduce.NNeighbors, "n_neighbors", 15, "neighbors used to build the fuzzy graph")
	cmd.Flags().Float64Var(&reduce.MinDist, "min_dist", 0.1, "minimum distance between embedded points")
	cmd.Flags().IntVar(&reduce.NComponents, "n_components", 50, "dimensions of the reduced space")
	cmd.Flags().IntVar(&reduce.Epochs, "epochs", 0, "optimization epochs (0 picks from data size)")
	cmd.Flags().StringVar(&reduceMetric, "metric", string(matrix.Cosine), "distance metric of the reduction (euclidean, cosine)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed of the reduction")
	cmd.Flags().Float64Var(&dbscanEps, "dbscan_eps", 0.3, "DBSCAN neighborhood radius in the reduced space")
	cmd.Flags().IntVar(&dbscanSamples, "dbscan_min_samples", 5, "DBSCAN core point neighbors")
	cmd.Flags().StringVar(&dbscanMetric, "dbscan_metric", string(matrix.Euclidean), "DBSCAN distance metric (euclidean, cosine)")

	return cmd
}
