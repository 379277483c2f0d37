package config

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := c.validateLadders(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStore() error {
	switch c.Store.HashAlgorithm {
	case "sha256", "blake3":
		return nil
	default:
		return fmt.Errorf("store.hash_algorithm must be sha256 or blake3, got %q", c.Store.HashAlgorithm)
	}
}

func (c *Config) validateCompression() error {
	if c.Compression.MinSizeBytes < 0 {
		return errors.New("compression.min_size_bytes must be >= 0")
	}
	if c.Compression.TargetSizeBytes <= 0 {
		return errors.New("compression.target_size_bytes must be positive")
	}
	return nil
}

func (c *Config) validateLadders() error {
	for name, ladder := range map[string]Ladder{
		"ladder.jpeg": c.Ladder.JPEG,
		"ladder.webp": c.Ladder.WEBP,
		"ladder.png":  c.Ladder.PNG,
	} {
		if err := ladder.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (l Ladder) validate(name string) error {
	if l.Start < 1 || l.Start > 100 {
		return fmt.Errorf("%s.start must be between 1 and 100", name)
	}
	if l.Floor < 0 || l.Floor > l.Start {
		return fmt.Errorf("%s.floor must be between 0 and %s.start", name, name)
	}
	if l.Step <= 0 {
		return fmt.Errorf("%s.step must be positive", name)
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.OxipngLevel < 0 || c.Tools.OxipngLevel > 6 {
		return errors.New("tools.oxipng_level must be between 0 and 6")
	}
	if c.Tools.TimeoutSeconds < 0 {
		return errors.New("tools.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count < 0 {
		return errors.New("workers.count must be >= 0")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	for _, pattern := range c.Discovery.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("discovery.exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
