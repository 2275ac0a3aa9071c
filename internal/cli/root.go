package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/yildizm/feedcluster/internal/config"
	"github.com/yildizm/feedcluster/internal/emoji"
	"github.com/yildizm/feedcluster/internal/logger"
	"github.com/yildizm/feedcluster/internal/ui"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	noEmoji   bool
	outputFmt string

	globalConfig *config.Config
)

// skipConfigAnnotation marks commands that must run without a valid config
const skipConfigAnnotation = "skip-config"

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "feedcluster",
		Short: "Cluster customer feedback by embedding similarity",
		Long: `feedcluster groups feedback records that carry embedding vectors,
writes the chosen clustering back onto the records without their embeddings,
and compares clustering strategies over a parameter grid.

Input is a JSON array of records. Every record needs an embedding field
(default "Embedding") and a customer identity field (default "CustomerName").`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}
			emoji.SetEmojiDisabled(noEmoji)

			if skipsConfig(cmd) {
				return nil
			}
			cfg, err := loadGlobalConfig(cfgFile)
			if err != nil {
				return err
			}
			applyOutputSettings(cmd, cfg)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "report format (text, json, markdown, csv)")

	rootCmd.AddCommand(newDBSCANCommand())
	rootCmd.AddCommand(newHDBSCANCommand())
	rootCmd.AddCommand(newAgglomerativeCommand())
	rootCmd.AddCommand(newKMeansCommand())
	rootCmd.AddCommand(newUMAPCommand())
	rootCmd.AddCommand(newSweepCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Long:        "Display version number, build commit, date, and runtime information",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "feedcluster %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// skipsConfig reports whether cmd or one of its parents opts out of config loading
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

// loadGlobalConfig loads the layered configuration once per process
func loadGlobalConfig(path string) (*config.Config, error) {
	cfg, err := config.NewLoader().LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	globalConfig = cfg
	return cfg, nil
}

// GetGlobalConfig returns the loaded configuration, or defaults before loading
func GetGlobalConfig() *config.Config {
	if globalConfig == nil {
		return config.DefaultConfig()
	}
	return globalConfig
}

// applyOutputSettings lets config values fill in flags the user did not set
func applyOutputSettings(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("output") && cfg.Output.DefaultFormat != "" {
		outputFmt = cfg.Output.DefaultFormat
	}
	if !cmd.Flags().Changed("verbose") && cfg.Output.Verbose {
		verbose = true
	}
	if cfg.Output.ColorMode == "never" {
		noColor = true
	}
	ui.SetColorDisabled(noColor)
	if cfg.Output.Theme != "" {
		ui.SetThemeByName(cfg.Output.Theme)
	}
}

// Global helpers
func isVerbose() bool {
	return verbose
}

func getOutputFormat() string {
	return outputFmt
}

func useColor() bool {
	return !noColor && !ui.IsColorDisabled()
}

// newLogger creates a component logger gated by --verbose
func newLogger(component string) *logger.Logger {
	return logger.NewWithCallback(component, isVerbose)
}
