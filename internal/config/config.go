// Package config holds resolved settings for the translation pipeline.
// Loading order: built-in defaults, then an optional YAML file, then
// environment overrides for secrets. The pipeline only reads resolved
// values; callers own when and how config is loaded.
package config

import (
	"fmt"
	"os"
	"time"

	"nl2code/internal/errdefs"

	"gopkg.in/yaml.v3"
)

// Config holds all nl2code configuration.
type Config struct {
	// Model capability settings
	Model ModelConfig `yaml:"model"`

	// Streaming translation settings
	Streaming StreamingConfig `yaml:"streaming"`

	// CPU offload executor settings
	Offload OffloadConfig `yaml:"offload"`

	// Output formatting settings
	Formatting FormattingConfig `yaml:"formatting"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:      defaultModelConfig(),
		Streaming:  defaultStreamingConfig(),
		Offload:    defaultOffloadConfig(),
		Formatting: defaultFormattingConfig(),
		Logging:    defaultLoggingConfig(),
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides pulls secrets and endpoint overrides from the
// environment so they never need to live in the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NL2CODE_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("NL2CODE_MODEL_URL"); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv("NL2CODE_PROVIDER"); v != "" {
		c.Model.Provider = v
	}
}

// Validate checks the configuration. In strict mode every problem is a
// *errdefs.ConfigurationError; otherwise out-of-range values are clamped
// back to defaults and no error is returned.
func (c *Config) Validate(strict bool) error {
	check := func(field, msg string, fix func()) error {
		if strict {
			return &errdefs.ConfigurationError{Field: field, Message: msg}
		}
		fix()
		return nil
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		if err := check("model.temperature", "must be in [0, 2]", func() { c.Model.Temperature = 0.3 }); err != nil {
			return err
		}
	}
	if c.Formatting.IndentWidth < 1 || c.Formatting.IndentWidth > 8 {
		if err := check("formatting.indent_width", "must be in [1, 8]", func() { c.Formatting.IndentWidth = 4 }); err != nil {
			return err
		}
	}
	if c.Streaming.MinChunkSize <= 0 || c.Streaming.MaxChunkSize < c.Streaming.MinChunkSize {
		if err := check("streaming.chunk_size", "min must be positive and max >= min", func() {
			d := defaultStreamingConfig()
			c.Streaming.MinChunkSize = d.MinChunkSize
			c.Streaming.MaxChunkSize = d.MaxChunkSize
		}); err != nil {
			return err
		}
	}
	if c.Offload.MaxWorkers < 0 {
		if err := check("offload.max_workers", "must be >= 0", func() { c.Offload.MaxWorkers = 0 }); err != nil {
			return err
		}
	}
	if c.Offload.JobSizeCap <= 0 {
		if err := check("offload.job_size_cap", "must be positive", func() { c.Offload.JobSizeCap = defaultOffloadConfig().JobSizeCap }); err != nil {
			return err
		}
	}
	if _, err := time.ParseDuration(c.Model.Timeout); err != nil {
		if cerr := check("model.timeout", "not a valid duration", func() { c.Model.Timeout = defaultModelConfig().Timeout }); cerr != nil {
			return cerr
		}
	}
	if _, err := time.ParseDuration(c.Offload.TaskTimeout); err != nil {
		if cerr := check("offload.task_timeout", "not a valid duration", func() { c.Offload.TaskTimeout = defaultOffloadConfig().TaskTimeout }); cerr != nil {
			return cerr
		}
	}
	return nil
}

// parseDuration returns the parsed duration or the fallback when the field
// is empty or malformed. Config fields store durations as strings so the
// YAML stays human-editable.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
