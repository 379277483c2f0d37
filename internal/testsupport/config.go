package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"squeeze/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Tools resolve from an empty tools directory and PATH is left alone, so
// encoders are absent unless stubbed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ToolsDir = filepath.Join(base, "tools")
	cfgVal.Logging.RetentionDays = 0
	if err := os.MkdirAll(cfgVal.Paths.ToolsDir, 0o755); err != nil {
		t.Fatalf("mkdir tools dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSizes overrides the skip threshold and the size ceiling.
func WithSizes(minSize, target int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compression.MinSizeBytes = minSize
		b.cfg.Compression.TargetSizeBytes = target
	}
}

// WithFallback enables the in-process encoders.
func WithFallback() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compression.Fallback = true
	}
}

// WithWorkers fixes the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Count = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names into the
// config's tools directory. If names is empty, every default encoder is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"cjpeg", "cwebp", "oxipng", "pngquant"}
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(b.cfg.Paths.ToolsDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
