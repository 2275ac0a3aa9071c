package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/feedcluster/internal/config"
	"github.com/yildizm/feedcluster/internal/emoji"
	"github.com/yildizm/feedcluster/internal/formatter"
	"github.com/yildizm/feedcluster/internal/history"
	"github.com/yildizm/feedcluster/internal/logger"
	"github.com/yildizm/feedcluster/internal/sweep"
	"github.com/yildizm/feedcluster/internal/ui"
)

// sweepOptions are the flags of the sweep and watch commands
type sweepOptions struct {
	inputOptions
	gridFile   string
	workers    int
	dbPath     string
	tui        bool
	outputFile string
	printGrid  bool
}

func newSweepCommand() *cobra.Command {
	var opts sweepOptions

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Compare clustering strategies over a parameter grid",
		Long: `Run every entry of a parameter grid on the same records and print one
summary row per entry: clusters found, outliers, distinct customers covered
and average customers per cluster.

Without --grid the built-in grid is used (six DBSCAN, six HDBSCAN, two
agglomerative and two k-means runs). Rows always follow grid order.

Examples:
  feedcluster sweep --input_file feedback.json
  feedcluster sweep --input_file feedback.json --grid grid.yaml --workers 4
  feedcluster sweep --input_file feedback.json -o markdown --output_file sweep.md
  feedcluster sweep --input_file feedback.json --db ~/.feedcluster/history.db --tui
  feedcluster sweep --print-grid > grid.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.printGrid {
				return printGrid(cmd, &opts)
			}
			if opts.inputFile == "" {
				return fmt.Errorf("required flag \"input_file\" not set")
			}
			return runSweep(cmd, &opts)
		},
	}

	addSweepFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "browse the results in an interactive viewer")
	cmd.Flags().StringVar(&opts.outputFile, "output_file", "", "write the formatted report to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.printGrid, "print-grid", false, "print the grid as YAML and exit")

	return cmd
}

func addSweepFlags(cmd *cobra.Command, opts *sweepOptions) {
	addInputFlags(cmd, &opts.inputOptions)
	cmd.Flags().StringVar(&opts.gridFile, "grid", "", "YAML grid file (default: built-in grid)")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "grid entries evaluated concurrently")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "record the sweep in this history database")
}

// resolveSweep fills unset sweep flags from the configuration
func (o *sweepOptions) resolveSweep(cmd *cobra.Command, cfg *config.Config) {
	o.resolve(cmd, cfg)
	if !cmd.Flags().Changed("grid") {
		o.gridFile = cfg.Sweep.GridFile
	}
	if !cmd.Flags().Changed("workers") {
		o.workers = cfg.Sweep.Workers
	}
	if !cmd.Flags().Changed("timeout") {
		o.timeout = cfg.Sweep.Timeout
	}
	if !cmd.Flags().Changed("db") && cfg.Storage.RecordHistory {
		o.dbPath = cfg.Storage.HistoryDB
	}
}

// loadSweepGrid returns the grid file contents or the built-in grid
func loadSweepGrid(path string) (sweep.Grid, error) {
	if path == "" {
		return sweep.DefaultGrid(), nil
	}
	grid, err := sweep.LoadGrid(path)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("sweep grid %s has no runs", path)
	}
	return grid, nil
}

func printGrid(cmd *cobra.Command, opts *sweepOptions) error {
	opts.resolveSweep(cmd, GetGlobalConfig())
	grid, err := loadSweepGrid(opts.gridFile)
	if err != nil {
		return err
	}
	data, err := sweep.MarshalGrid(grid)
	if err != nil {
		return fmt.Errorf("failed to render grid: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runSweep(cmd *cobra.Command, opts *sweepOptions) error {
	cfg := GetGlobalConfig()
	opts.resolveSweep(cmd, cfg)
	log := newLogger("sweep")

	ctx, cancel := commandContext(opts.timeout)
	defer cancel()

	report, err := executeSweep(ctx, opts, cfg, log)
	if err != nil {
		return err
	}

	if opts.dbPath != "" {
		if _, err := saveHistory(ctx, opts.dbPath, report, log); err != nil {
			log.Warn("%s Sweep not recorded: %v", emoji.GetEmoji("warning"), err)
		}
	}

	if opts.tui {
		return ui.Run(report)
	}
	return writeReport(cmd, report, opts.outputFile)
}

// executeSweep loads the grid and the records and runs the whole grid.
// The grid is read first so a broken grid fails before any clustering.
func executeSweep(ctx context.Context, opts *sweepOptions, cfg *config.Config, log *logger.Logger) (*sweep.Report, error) {
	grid, err := loadSweepGrid(opts.gridFile)
	if err != nil {
		return nil, err
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	data, err := loadDataset(&opts.inputOptions, log)
	if err != nil {
		return nil, err
	}
	backend, err := createBackend(&opts.inputOptions, cfg, log)
	if err != nil {
		return nil, err
	}

	runner := &sweep.Runner{
		Backend: backend,
		Workers: opts.workers,
		Logger:  log,
	}
	report, err := runner.Run(ctx, data.matrix, data.identities, grid)
	if err != nil {
		return nil, err
	}
	report.InputFile = opts.inputFile
	return report, nil
}

// saveHistory stores report in the sqlite history at path
func saveHistory(ctx context.Context, path string, report *sweep.Report, log *logger.Logger) (int64, error) {
	store, err := history.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()

	id, err := store.SaveReport(ctx, report)
	if err != nil {
		return 0, err
	}
	log.InfoWithFields("Sweep recorded", []logger.Field{
		logger.F("run", id),
		logger.F("db", store.Path()),
	})
	return id, nil
}

// writeReport renders report with the --output format to stdout or a file
func writeReport(cmd *cobra.Command, report *sweep.Report, outputFile string) error {
	f, err := formatter.New(getOutputFormat(), useColor() && outputFile == "")
	if err != nil {
		return err
	}
	output, err := f.Format(report)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	if outputFile == "" {
		_, err = cmd.OutOrStdout().Write(output)
		return err
	}
	if err := writeOutputBytesToFile(output, outputFile); err != nil {
		return fmt.Errorf("failed to write output to file: %w", err)
	}
	if isVerbose() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Output saved to: %s\n", outputFile)
	}
	return nil
}

func validateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", cleanPath)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", cleanPath)
	}

	return nil
}

// writeOutputBytesToFile writes output to a file, creating parent directories
func writeOutputBytesToFile(output []byte, filePath string) error {
	cleanPath := filepath.Clean(filePath)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// #nosec G304 - output path is chosen by the user
	file, err := os.Create(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := file.Write(output); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	return file.Close()
}

// elapsed formats a duration for progress messages
func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
