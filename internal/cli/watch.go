package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/yildizm/feedcluster/internal/emoji"
	"github.com/yildizm/feedcluster/internal/sweep"
	"github.com/yildizm/feedcluster/internal/ui"
)

type watchOptions struct {
	sweepOptions
	debounce time.Duration
}

func newWatchCommand() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the sweep whenever the input file changes",
		Long: `Run the parameter sweep once, then watch the input file and run it
again every time the file is written. Bursts of writes are collapsed into a
single run. A run that fails on a half-written file is reported and the
watch continues. Press Ctrl+C to stop watching.

Examples:
  feedcluster watch --input_file feedback.json
  feedcluster watch --input_file feedback.json --grid grid.yaml --tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, &opts)
		},
	}

	addSweepFlags(cmd, &opts.sweepOptions)
	_ = cmd.MarkFlagRequired("input_file")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show the latest results in an interactive viewer")
	cmd.Flags().StringVar(&opts.outputFile, "output_file", "", "rewrite this file with the latest report instead of printing it")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "quiet period after the last write before re-running")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) error {
	cfg := GetGlobalConfig()
	opts.resolveSweep(cmd, cfg)
	log := newLogger("watch")

	if err := validateWatchFilePath(opts.inputFile); err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}
	target, err := filepath.Abs(opts.inputFile)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", opts.inputFile, err)
	}

	ctx, cancel := commandContext(0)
	defer cancel()

	watcher, err := createWatcher(target)
	if err != nil {
		return err
	}
	defer cleanupWatcher(watcher)

	rerun := func() (*sweep.Report, error) {
		start := time.Now()
		report, err := executeSweep(ctx, &opts.sweepOptions, cfg, log)
		if err != nil {
			return nil, err
		}
		if opts.dbPath != "" {
			if _, err := saveHistory(ctx, opts.dbPath, report, log); err != nil {
				log.Warn("%s Sweep not recorded: %v", emoji.GetEmoji("warning"), err)
			}
		}
		log.Info("Sweep of %d runs finished in %s", len(report.Results), elapsed(start))
		return report, nil
	}

	report, err := rerun()
	if err != nil {
		return err
	}

	if opts.tui {
		updates := make(chan *sweep.Report)
		go func() {
			defer close(updates)
			_ = watchLoop(ctx, watcher, target, opts.debounce, func() {
				next, err := rerun()
				if err != nil {
					log.Warn("%s Sweep failed: %v", emoji.GetEmoji("warning"), err)
					return
				}
				select {
				case updates <- next:
				case <-ctx.Done():
				}
			})
		}()
		err := ui.RunLive(report, updates)
		cancel()
		return err
	}

	if err := writeReport(cmd, report, opts.outputFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s Watching %s, press Ctrl+C to stop...\n", emoji.GetEmoji("watch"), opts.inputFile)

	return watchLoop(ctx, watcher, target, opts.debounce, func() {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%s %s changed, re-running sweep\n", emoji.GetEmoji("sweep"), opts.inputFile)
		next, err := rerun()
		if err != nil {
			log.Warn("%s Sweep failed: %v", emoji.GetEmoji("warning"), err)
			return
		}
		if err := writeReport(cmd, next, opts.outputFile); err != nil {
			log.Error("%s %v", emoji.GetEmoji("error"), err)
		}
	})
}

// watchLoop calls onChange once the target has been quiet for debounce after
// a write. It returns nil when ctx ends.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string, debounce time.Duration, onChange func()) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !isTargetWrite(event, target) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
			}
		}
	}
}

// isTargetWrite matches writes to target, including editors that replace the
// file with a new one
func isTargetWrite(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// cleanupWatcher safely closes watcher with error logging
func cleanupWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
}

// createWatcher watches the directory of filename so atomic replacements
// are seen too
func createWatcher(filename string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		cleanupWatcher(watcher)
		return nil, fmt.Errorf("failed to watch file: %w", err)
	}

	return watcher, nil
}

// validateWatchFilePath validates that a file path is safe to watch
func validateWatchFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot watch directory, must be a file")
	}

	return nil
}
