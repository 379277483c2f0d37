package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"squeeze/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Verify encoders and directory access",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, _, err := resolveRoot(args)
			if err != nil {
				return err
			}

			colorize := isTerminal(cmd.OutOrStdout())
			ok := paint(colorize, color.FgGreen)
			bad := paint(colorize, color.FgRed)

			results := preflight.RunAll(cfg, root)
			rows := make([][]string, 0, len(results))
			failed := 0
			for _, result := range results {
				status := ok.Sprint("ok")
				if !result.Passed {
					status = bad.Sprint("missing")
					failed++
				}
				rows = append(rows, []string{result.Name, status, result.Detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(tableSpec{
				Headers: []string{"Check", "Status", "Detail"},
				Rows:    rows,
			}))
			fmt.Fprintf(out, "Config: %s\n", displayConfigPath(ctx.configPath))
			fmt.Fprintf(out, "Fallback encoders: %s\n", yesNo(cfg.Compression.Fallback))
			fmt.Fprintf(out, "Workers: %d\n", cfg.WorkerCount())

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func displayConfigPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
