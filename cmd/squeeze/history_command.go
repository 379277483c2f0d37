package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"squeeze/internal/dedup"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "List recent runs recorded for a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _, err := resolveRoot(args)
			if err != nil {
				return err
			}
			store, err := ctx.openStore(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortRunID(run.ID),
					humanize.Time(run.StartedAt),
					runMode(run),
					formatCount(run.Processed),
					formatCount(run.SkippedDuplicate + run.SkippedSmall),
					formatCount(run.Errored),
					formatBytes(run.OriginalBytes - run.FinalBytes),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
				})
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				Headers: []string{"Run", "Started", "Mode", "Processed", "Skipped", "Errors", "Saved", "Took"},
				Rows:    rows,
				Aligns: []columnAlignment{
					alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight,
				},
			}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func shortRunID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func runMode(run dedup.RunRecord) string {
	switch {
	case run.Cancelled:
		return "cancelled"
	case run.DryRun:
		return "dry-run"
	default:
		return "compress"
	}
}
