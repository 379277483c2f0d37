package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"squeeze/internal/config"
	"squeeze/internal/dedup"
	"squeeze/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	logPath    string
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureLogger builds the run logger once, after configuration.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.logPath, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openStore opens the dedup store for root, translating a held lock into an
// actionable message.
func (c *commandContext) openStore(ctx context.Context, root string) (*dedup.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := dedup.Open(ctx, dedup.Options{
		Path:      cfg.StorePath(root),
		Root:      root,
		Algorithm: cfg.Store.HashAlgorithm,
	})
	if errors.Is(err, dedup.ErrLocked) {
		return nil, fmt.Errorf("another squeeze run is using %s; wait for it to finish", cfg.StorePath(root))
	}
	return store, err
}

// resolveRoot returns the absolute directory named by args, or the working
// directory when none is given.
func resolveRoot(args []string) (string, bool, error) {
	explicit := len(args) > 0 && strings.TrimSpace(args[0]) != ""
	target := "."
	if explicit {
		expanded, err := config.ExpandPath(args[0])
		if err != nil {
			return "", false, err
		}
		target = expanded
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", false, fmt.Errorf("resolve directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false, fmt.Errorf("inspect directory %q: %w", abs, err)
	}
	if !info.IsDir() {
		return "", false, fmt.Errorf("%s is not a directory", abs)
	}
	return abs, explicit, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func interactive(cmd *cobra.Command) bool {
	return isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout())
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
