package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yildizm/feedcluster/internal/emoji"
	"github.com/yildizm/feedcluster/internal/formatter"
	"github.com/yildizm/feedcluster/internal/history"
	"github.com/yildizm/feedcluster/internal/ui"
)

func newHistoryCommand() *cobra.Command {
	var (
		dbPath   string
		runID    int64
		limit    int
		deleteID int64
		tui      bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and show recorded sweeps",
		Long: `Browse sweeps recorded with "sweep --db" or storage.record_history.

Without --run the most recent sweeps are listed. With --run the stored rows
are printed in their original grid order using the --output format.

Examples:
  feedcluster history
  feedcluster history --run 3 -o markdown
  feedcluster history --run 3 --tui
  feedcluster history --delete 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") {
				dbPath = GetGlobalConfig().Storage.HistoryDB
			}

			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := context.Background()
			switch {
			case deleteID > 0:
				if err := store.DeleteRun(ctx, deleteID); err != nil {
					return historyError(err, deleteID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted sweep %d\n", emoji.GetEmoji("success"), deleteID)
				return nil

			case runID > 0:
				report, err := store.LoadReport(ctx, runID)
				if err != nil {
					return historyError(err, runID)
				}
				if tui {
					return ui.Run(report)
				}
				return writeReport(cmd, report, "")

			default:
				runs, err := store.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Sweeps in %s\n", emoji.GetEmoji("history"), store.Path())
				fmt.Fprint(cmd.OutOrStdout(), formatter.RunList(runs, useColor()))
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", history.DefaultDBPath, "history database")
	cmd.Flags().Int64Var(&runID, "run", 0, "show the results of this sweep")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of sweeps to list")
	cmd.Flags().Int64Var(&deleteID, "delete", 0, "delete this sweep")
	cmd.Flags().BoolVar(&tui, "tui", false, "browse the shown sweep in the interactive viewer")
	cmd.MarkFlagsMutuallyExclusive("run", "delete")

	return cmd
}

func historyError(err error, id int64) error {
	if errors.Is(err, history.ErrRunNotFound) {
		return fmt.Errorf("no recorded sweep with id %d", id)
	}
	return err
}
