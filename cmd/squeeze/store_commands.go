package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"squeeze/internal/dedup"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and maintain the dedup store",
	}
	storeCmd.AddCommand(newStoreStatsCommand(ctx))
	storeCmd.AddCommand(newStoreReconcileCommand(ctx))
	return storeCmd
}

func newStoreStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [dir]",
		Short: "Show dedup store totals",
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

			summary, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(tableSpec{
				Headers: []string{"Field", "Value"},
				Rows: [][]string{
					{"Store", summary.Path},
					{"Root", summary.Root},
					{"Hash", summary.Algorithm},
					{"Fingerprints", formatCount(summary.Entries)},
					{"Paths", formatCount(summary.Paths)},
					{"Runs", formatCount(summary.Runs)},
				},
				Aligns: []columnAlignment{alignLeft, alignRight},
			}))
			return nil
		},
	}
}

func newStoreReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [dir]",
		Short: "Drop store paths that are missing or changed on disk",
		Long: "Re-hash every stored path and drop the ones that are missing or no\n" +
			"longer match their fingerprint. Entries with no surviving path are deleted.",
		Args: cobra.MaximumNArgs(1),
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

			report, err := store.Reconcile(cmd.Context(), dedup.ReconcileOptions{Root: root})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), countPrinter.Sprintf(
				"Reconciled %d entries: %d kept, %d rewritten, %d deleted (%d paths pruned)",
				report.Checked, report.Kept, report.Rewritten, report.Deleted, report.PathsPruned))
			return nil
		},
	}
}
