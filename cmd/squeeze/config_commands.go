package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"squeeze/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the squeeze configuration",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var force bool
	var printOnly bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the annotated sample configuration",
		Long:        "Write the annotated sample configuration covering paths, store, compression, ladder, tools, workers, discovery and logging.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if printOnly {
				_, err := io.WriteString(out, config.Sample())
				return err
			}

			target, err := sampleTarget(targetPath)
			if err != nil {
				return err
			}
			if !force {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s already exists; pass --force to replace it", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("inspect %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}

			fmt.Fprintf(out, "Sample configuration written to %s\n", target)
			fmt.Fprintln(out, "Point [tools] at cjpeg, cwebp, oxipng and pngquant if they are not on PATH, then run `squeeze check`.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Write the sample here instead of the default config location")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the sample to stdout instead of writing it")
	return cmd
}

func sampleTarget(flagValue string) (string, error) {
	if value := strings.TrimSpace(flagValue); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return "", fmt.Errorf("resolve --path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("locate default config: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate [directory]",
		Short:       "Load the configuration and show the effective settings",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			root, _, err := resolveRoot(args)
			if err != nil {
				return err
			}

			source := resolved
			if !exists {
				source += " (not found, defaults in effect)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(tableSpec{
				Headers: []string{"Setting", "Value"},
				Rows:    effectiveSettings(cfg, source, root),
			}))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// effectiveSettings lists the values a run against root would use.
func effectiveSettings(cfg *config.Config, source, root string) [][]string {
	timeout := "none"
	if cfg.Timeout() > 0 {
		timeout = strconv.Itoa(cfg.Timeout()) + "s"
	}
	exclude := "none"
	if len(cfg.Discovery.Exclude) > 0 {
		exclude = strings.Join(cfg.Discovery.Exclude, ", ")
	}
	return [][]string{
		{"config", source},
		{"paths.log_dir", cfg.Paths.LogDir},
		{"paths.tools_dir", cfg.Paths.ToolsDir},
		{"store", cfg.StorePath(root)},
		{"store.hash_algorithm", cfg.Store.HashAlgorithm},
		{"compression.target", formatBytes(cfg.Compression.TargetSizeBytes)},
		{"compression.min_size", formatBytes(cfg.Compression.MinSizeBytes)},
		{"compression.fallback", yesNo(cfg.Compression.Fallback)},
		{"ladder.jpeg", formatLadder(cfg.Ladder.JPEG)},
		{"ladder.webp", formatLadder(cfg.Ladder.WEBP)},
		{"ladder.png", formatLadder(cfg.Ladder.PNG)},
		{"tools.jpeg", cfg.Tools.JPEG},
		{"tools.webp", cfg.Tools.WEBP},
		{"tools.png", cfg.Tools.PNGOptimize + " + " + cfg.Tools.PNGQuantize},
		{"tools.timeout", timeout},
		{"workers", strconv.Itoa(cfg.WorkerCount())},
		{"discovery.exclude", exclude},
		{"logging", cfg.Logging.Format + " at " + cfg.Logging.Level},
	}
}

func formatLadder(l config.Ladder) string {
	return fmt.Sprintf("%d down to %d by %d", l.Start, l.Floor, l.Step)
}
