package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/config"
	"github.com/yildizm/feedcluster/internal/emoji"
	"github.com/yildizm/feedcluster/internal/engine"
	"github.com/yildizm/feedcluster/internal/engine/remote"
	"github.com/yildizm/feedcluster/internal/export"
	"github.com/yildizm/feedcluster/internal/formatter"
	"github.com/yildizm/feedcluster/internal/labeler"
	"github.com/yildizm/feedcluster/internal/logger"
	"github.com/yildizm/feedcluster/internal/matrix"
	"github.com/yildizm/feedcluster/internal/record"
	"github.com/yildizm/feedcluster/internal/stats"
)

// inputOptions are the flags shared by every command that reads records
type inputOptions struct {
	inputFile      string
	identityField  string
	embeddingField string
	backend        string
	endpoint       string
	timeout        time.Duration
}

// clusterOptions are the flags shared by the per-algorithm commands
type clusterOptions struct {
	inputOptions
	outputFile  string
	groupsFile  string
	labelThemes bool
}

func addInputFlags(cmd *cobra.Command, opts *inputOptions) {
	cmd.Flags().StringVar(&opts.inputFile, "input_file", "", "JSON array of records with embeddings (required)")
	cmd.Flags().StringVar(&opts.identityField, "identity_field", "CustomerName", "record field identifying the customer")
	cmd.Flags().StringVar(&opts.embeddingField, "embedding_field", "Embedding", "record field holding the embedding vector")
	cmd.Flags().StringVar(&opts.backend, "backend", "native", "clustering backend (native, remote)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "clustering sidecar URL for the remote backend")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort after this duration (0 disables)")
}

func addClusterFlags(cmd *cobra.Command, opts *clusterOptions, defaultOutput string) {
	addInputFlags(cmd, &opts.inputOptions)
	_ = cmd.MarkFlagRequired("input_file")
	cmd.Flags().StringVar(&opts.outputFile, "output_file", defaultOutput, "annotated records output path")
	cmd.Flags().StringVar(&opts.groupsFile, "groups_file", "", "also write records grouped per cluster to this path")
	cmd.Flags().BoolVar(&opts.labelThemes, "label-themes", false, "name the issue of each cluster with the configured AI provider")
}

// resolve fills flags the user did not set from the configuration
func (o *inputOptions) resolve(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("identity_field") {
		o.identityField = cfg.Input.IdentityField
	}
	if !cmd.Flags().Changed("embedding_field") {
		o.embeddingField = cfg.Input.EmbeddingField
	}
	if !cmd.Flags().Changed("backend") {
		o.backend = cfg.Engine.Backend
	}
	if !cmd.Flags().Changed("endpoint") {
		o.endpoint = cfg.Engine.Endpoint
	}
}

// dataset is the loaded input of one run
type dataset struct {
	records    []*record.Record
	matrix     *matrix.Matrix
	identities []string
}

// loadDataset reads records and extracts the embedding matrix and identities
func loadDataset(opts *inputOptions, log *logger.Logger) (*dataset, error) {
	if err := validateFilePath(opts.inputFile); err != nil {
		return nil, fmt.Errorf("invalid input file: %w", err)
	}

	start := time.Now()
	records, err := record.LoadFile(opts.inputFile)
	if err != nil {
		return nil, err
	}
	m, err := matrix.Build(records, opts.embeddingField)
	if err != nil {
		return nil, err
	}
	identities, err := matrix.Identities(records, opts.identityField)
	if err != nil {
		return nil, err
	}

	log.InfoWithFields("Loaded records", []logger.Field{
		logger.F("file", opts.inputFile),
		logger.F("records", m.Rows()),
		logger.F("dims", m.Dims()),
		logger.Duration(time.Since(start)),
	})
	return &dataset{records: records, matrix: m, identities: identities}, nil
}

// createBackend builds the engine named by opts
func createBackend(opts *inputOptions, cfg *config.Config, log *logger.Logger) (cluster.Backend, error) {
	switch opts.backend {
	case "", "native":
		return engine.NewNative(log.WithComponent("engine")), nil
	case "remote":
		client, err := remote.New(remote.Config{
			BaseURL: opts.endpoint,
			Timeout: cfg.Engine.Timeout,
		}, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s (must be one of: native, remote)", opts.backend)
	}
}

// commandContext is canceled on interrupt and, when timeout is set, after it
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// runClusterCommand clusters the input with params, prints the per-cluster
// report and writes the annotated records
func runClusterCommand(cmd *cobra.Command, opts *clusterOptions, params cluster.Params) error {
	cfg := GetGlobalConfig()
	opts.resolve(cmd, cfg)
	log := newLogger(string(params.Algorithm()))

	// Parameter problems are reported before any file is read
	if err := params.Validate(); err != nil {
		return err
	}

	data, err := loadDataset(&opts.inputOptions, log)
	if err != nil {
		return err
	}
	backend, err := createBackend(&opts.inputOptions, cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(opts.timeout)
	defer cancel()

	start := time.Now()
	assignment, err := cluster.Fit(ctx, backend, data.matrix, params)
	if err != nil {
		return err
	}
	if isVerbose() {
		if summary, err := stats.Summarize(assignment, data.identities); err == nil {
			log.InfoWithFields("Clustering finished", []logger.Field{
				logger.F("params", params.Describe()),
				logger.F("clusters", summary.NClusters),
				logger.F("outliers", summary.NOutliers),
				logger.Duration(time.Since(start)),
			})
		}
	}

	lines, err := export.Report(assignment, data.identities)
	if err != nil {
		return err
	}

	var groups []export.Group
	if opts.groupsFile != "" || opts.labelThemes {
		groups, err = export.Groups(data.records, assignment, data.identities)
		if err != nil {
			return err
		}
	}
	if opts.labelThemes {
		labelGroups(ctx, cfg, groups, log)
	}

	if err := export.Annotate(data.records, assignment, opts.embeddingField); err != nil {
		return err
	}
	if err := record.SaveFile(opts.outputFile, data.records); err != nil {
		return err
	}
	if opts.groupsFile != "" {
		if err := export.WriteGroups(opts.groupsFile, groups); err != nil {
			return err
		}
		log.Info("Wrote %d cluster groups to %s", len(groups), opts.groupsFile)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, formatter.ClusterLines(lines))
	fmt.Fprintln(out, formatter.WrittenMessage(len(data.records), opts.outputFile))
	if opts.labelThemes {
		fmt.Fprint(out, formatter.Themes(groups, useColor()))
	}
	return nil
}

// labelGroups names the theme of every group in place. Failures are warnings.
func labelGroups(ctx context.Context, cfg *config.Config, groups []export.Group, log *logger.Logger) {
	if len(groups) == 0 {
		return
	}
	provider, err := createAIProvider(&cfg.AI)
	if err != nil {
		log.Warn("%s Theme labeling skipped: %v", emoji.GetEmoji("warning"), err)
		return
	}
	defer func() { _ = provider.Close() }()

	l := labeler.New(provider, labeler.Options{
		Samples:     cfg.AI.Samples,
		Concurrency: cfg.AI.Concurrency,
	}, log.WithComponent("labeler"))

	themes, err := l.Label(ctx, groups)
	if err != nil {
		log.Warn("%s Theme labeling failed: %v", emoji.GetEmoji("warning"), err)
		return
	}
	labeler.Apply(groups, themes)
}
