package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"squeeze/internal/config"
	"squeeze/internal/pipeline"
	"squeeze/internal/preflight"
	"squeeze/internal/services"
)

type runFlags struct {
	dryRun     bool
	yes        bool
	fallback   bool
	workers    int
	target     string
	minSize    string
	noProgress bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Compress every image under a directory",
		Long: "Compress every image under dir (default: the working directory) in place.\n" +
			"Files already seen with identical content are skipped.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompress(cmd, ctx, args, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Report what would be compressed without touching files")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Skip confirmation prompts")
	cmd.Flags().BoolVar(&flags.fallback, "fallback", false, "Use built-in encoders when external tools are missing")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Number of files processed concurrently (default from config)")
	cmd.Flags().StringVar(&flags.target, "target", "", "Target size per file, e.g. 2MB")
	cmd.Flags().StringVar(&flags.minSize, "min-size", "", "Skip files smaller than this size, e.g. 2MB")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress indicator")
	return cmd
}

func runCompress(cmd *cobra.Command, ctx *commandContext, args []string, flags runFlags) error {
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applyRunFlags(*base, flags)
	if err != nil {
		return err
	}

	root, explicit, err := resolveRoot(args)
	if err != nil {
		return err
	}

	tty := interactive(cmd)
	if !explicit && !flags.yes && !flags.dryRun {
		if !tty {
			return fmt.Errorf("no directory given; pass one explicitly or use --yes to compress %s", root)
		}
		ok, err := confirm(cmd, fmt.Sprintf("Compress images under %s in place", root))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
	}

	if !cfg.Compression.Fallback && !flags.dryRun {
		if missing := preflight.MissingTools(preflight.CheckTools(&cfg)); missing != nil {
			if !tty || flags.yes {
				return missing
			}
			fmt.Fprintln(cmd.ErrOrStderr(), missing)
			ok, err := confirm(cmd, "Use built-in encoders for this run")
			if err != nil {
				return err
			}
			if !ok {
				return missing
			}
			cfg.Compression.Fallback = true
		}
	}

	if err := preflight.Verify(&cfg, root, cfg.Compression.Fallback || flags.dryRun); err != nil {
		return err
	}

	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	store, err := ctx.openStore(cmd.Context(), root)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := pipeline.NewRunner(&cfg, store, logger)
	if err != nil {
		return err
	}

	progress := newRunProgress(cmd.ErrOrStderr(), !flags.noProgress && isTerminal(cmd.ErrOrStderr()))
	report, runErr := runner.Run(cmd.Context(), root, pipeline.RunOptions{
		DryRun:   flags.dryRun,
		Workers:  flags.workers,
		Progress: progress.observe,
	})
	progress.finish()

	renderReport(cmd.OutOrStdout(), report, ctx.logPath, isTerminal(cmd.OutOrStdout()))
	return runErr
}

// applyRunFlags overlays command-line overrides on a copy of cfg.
func applyRunFlags(cfg config.Config, flags runFlags) (config.Config, error) {
	if flags.fallback {
		cfg.Compression.Fallback = true
	}
	if flags.workers < 0 {
		return cfg, services.Wrap(services.ErrConfiguration, "cli", "parse flags", "--workers must be positive", nil)
	}
	if size, ok, err := parseSizeFlag("--target", flags.target); err != nil {
		return cfg, err
	} else if ok {
		cfg.Compression.TargetSizeBytes = size
	}
	if size, ok, err := parseSizeFlag("--min-size", flags.minSize); err != nil {
		return cfg, err
	} else if ok {
		cfg.Compression.MinSizeBytes = size
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseSizeFlag(name, value string) (int64, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, false, services.Wrap(services.ErrConfiguration, "cli", "parse flags", name, err)
	}
	return int64(size), true, nil
}
