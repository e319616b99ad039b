// Package config handles configuration for uitap.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uitap-dev/uitap/pkg/core"
)

// Defaults for the tunable surface. Each is overridable per call or per
// session.
const (
	DefaultConfidenceThreshold = 0.8
	DefaultPollIntervalMs      = 500
	DefaultLocateTimeoutMs     = 10000
	DefaultSettleDelayMs       = 500
	DefaultStepRetries         = 2
)

// Config represents the workspace configuration (config.yaml).
// Durations are in milliseconds.
type Config struct {
	// Element location
	ConfidenceThreshold float64 `yaml:"confidenceThreshold"` // Template match threshold
	PollIntervalMs      int     `yaml:"pollIntervalMs"`      // Locate poll interval
	LocateTimeoutMs     int     `yaml:"locateTimeoutMs"`     // Default locate timeout
	StrictAmbiguity     bool    `yaml:"strictAmbiguity"`     // Fail on ambiguous matches

	// Interaction
	SettleDelayMs int `yaml:"settleDelayMs"` // Wait after each gesture
	StepRetries   int `yaml:"stepRetries"`   // Session retries per step

	// Resources
	TemplatesDir string `yaml:"templatesDir"` // Template store directory
	OCREndpoint  string `yaml:"ocrEndpoint"`  // Remote OCR service (empty = disabled)

	// Device settings
	Device string `yaml:"device"` // Target device serial
}

// Default returns a Config populated with the default values.
func Default() *Config {
	return &Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		PollIntervalMs:      DefaultPollIntervalMs,
		LocateTimeoutMs:     DefaultLocateTimeoutMs,
		SettleDelayMs:       DefaultSettleDelayMs,
		StepRetries:         DefaultStepRetries,
		TemplatesDir:        filepath.Join(GetHome(), "templates"),
	}
}

// PollInterval returns the locate poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// LocateTimeout returns the default locate timeout as a duration.
func (c *Config) LocateTimeout() time.Duration {
	return time.Duration(c.LocateTimeoutMs) * time.Millisecond
}

// SettleDelay returns the post-gesture settle delay as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// Load loads configuration from a file. Fields absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
// No config file means defaults, not an error.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return core.ErrInvalidConfig.WithMessage("confidenceThreshold must be in [0,1]")
	}
	if c.PollIntervalMs <= 0 {
		return core.ErrInvalidConfig.WithMessage("pollIntervalMs must be positive")
	}
	if c.LocateTimeoutMs < 0 {
		return core.ErrInvalidConfig.WithMessage("locateTimeoutMs must not be negative")
	}
	if c.StepRetries < 0 {
		return core.ErrInvalidConfig.WithMessage("stepRetries must not be negative")
	}
	return nil
}
