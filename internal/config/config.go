package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	ToolsDir string `toml:"tools_dir"`
}

// Store contains configuration for the dedup store.
type Store struct {
	// Path overrides the database location. When empty the store lives in
	// <root>/.squeeze/index.db for the directory being processed.
	Path          string `toml:"path"`
	HashAlgorithm string `toml:"hash_algorithm"`
}

// Compression contains the size thresholds that drive per-file decisions.
type Compression struct {
	MinSizeBytes    int64 `toml:"min_size_bytes"`
	TargetSizeBytes int64 `toml:"target_size_bytes"`
	Fallback        bool  `toml:"fallback"`
}

// Ladder describes a descending quality sequence for one format.
type Ladder struct {
	Start int `toml:"start"`
	Step  int `toml:"step"`
	Floor int `toml:"floor"`
}

// Ladders groups per-format quality ladders.
type Ladders struct {
	JPEG Ladder `toml:"jpeg"`
	WEBP Ladder `toml:"webp"`
	PNG  Ladder `toml:"png"`
}

// Tools contains external encoder binaries and invocation limits.
type Tools struct {
	JPEG           string `toml:"jpeg"`
	WEBP           string `toml:"webp"`
	PNGOptimize    string `toml:"png_optimize"`
	PNGQuantize    string `toml:"png_quantize"`
	OxipngLevel    int    `toml:"oxipng_level"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workers contains worker pool sizing.
type Workers struct {
	// Count fixes the pool size; 0 derives it from the CPU count.
	Count  int `toml:"count"`
	PerCPU int `toml:"per_cpu"`
	Max    int `toml:"max"`
}

// Discovery contains directory walk filters.
type Discovery struct {
	Exclude []string `toml:"exclude"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for squeeze.
//
// Configuration sections by subsystem:
//   - Paths: state, log, and bundled tool directories
//   - Store: dedup database location and fingerprint algorithm
//   - Compression: skip threshold, size ceiling, in-process fallback
//   - Ladder: per-format quality ladders
//   - Tools: external encoder binaries and timeouts
//   - Workers: pool sizing
//   - Discovery: exclude patterns
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Store       Store       `toml:"store"`
	Compression Compression `toml:"compression"`
	Ladder      Ladders     `toml:"ladder"`
	Tools       Tools       `toml:"tools"`
	Workers     Workers     `toml:"workers"`
	Discovery   Discovery   `toml:"discovery"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/squeeze/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("squeeze.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the dedup database path used for the given root directory.
func (c *Config) StorePath(root string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(root, StoreDirName, "index.db")
}

// WorkerCount resolves the worker pool size, deriving it from the CPU count
// when no explicit count is configured.
func (c *Config) WorkerCount() int {
	if c.Workers.Count > 0 {
		return c.Workers.Count
	}
	n := runtime.NumCPU() * c.Workers.PerCPU
	if n < 1 {
		n = 1
	}
	if c.Workers.Max > 0 && n > c.Workers.Max {
		n = c.Workers.Max
	}
	return n
}

// Timeout returns the per-invocation external tool timeout in seconds, zero meaning none.
func (c *Config) Timeout() int {
	return c.Tools.TimeoutSeconds
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the annotated sample configuration.
func Sample() string { return sampleConfig }

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
