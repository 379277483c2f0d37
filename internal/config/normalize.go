package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeWorkers()
	c.normalizeDiscovery()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ToolsDir) == "" {
		if value, ok := os.LookupEnv("SQUEEZE_TOOLS_DIR"); ok {
			c.Paths.ToolsDir = strings.TrimSpace(value)
		}
	}
	if c.Paths.ToolsDir, err = expandPath(strings.TrimSpace(c.Paths.ToolsDir)); err != nil {
		return fmt.Errorf("paths.tools_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	var err error
	if c.Store.Path, err = expandPath(strings.TrimSpace(c.Store.Path)); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	c.Store.HashAlgorithm = strings.ToLower(strings.TrimSpace(c.Store.HashAlgorithm))
	if c.Store.HashAlgorithm == "" {
		c.Store.HashAlgorithm = defaultHashAlgorithm
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.JPEG = defaultIfBlank(c.Tools.JPEG, defaultJPEGTool)
	c.Tools.WEBP = defaultIfBlank(c.Tools.WEBP, defaultWEBPTool)
	c.Tools.PNGOptimize = defaultIfBlank(c.Tools.PNGOptimize, defaultPNGOptimizeTool)
	c.Tools.PNGQuantize = defaultIfBlank(c.Tools.PNGQuantize, defaultPNGQuantizeTool)
	if c.Tools.OxipngLevel == 0 {
		c.Tools.OxipngLevel = defaultOxipngLevel
	}
}

func (c *Config) normalizeWorkers() {
	if c.Workers.PerCPU <= 0 {
		c.Workers.PerCPU = defaultWorkersPerCPU
	}
	if c.Workers.Max <= 0 {
		c.Workers.Max = defaultWorkersMax
	}
}

func (c *Config) normalizeDiscovery() {
	if len(c.Discovery.Exclude) == 0 {
		return
	}
	patterns := make([]string, 0, len(c.Discovery.Exclude))
	seen := make(map[string]struct{}, len(c.Discovery.Exclude))
	for _, pattern := range c.Discovery.Exclude {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		patterns = append(patterns, trimmed)
	}
	c.Discovery.Exclude = patterns
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("SQUEEZE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func defaultIfBlank(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
