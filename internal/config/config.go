// Package config loads image-adjust-mcp configuration from an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvConfig   = "IMAGE_ADJUST_CONFIG"
	EnvLogLevel = "IMAGE_ADJUST_LOG_LEVEL"
	EnvStore    = "IMAGE_ADJUST_STORE"
)

// Config is the top-level configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Handoff  HandoffConfig  `yaml:"handoff"`
	Export   ExportConfig   `yaml:"export"`
	Viewport ViewportConfig `yaml:"viewport"`
	Log      LogConfig      `yaml:"log"`
}

// StoreConfig selects the handoff store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite
	Path   string `yaml:"path"`   // sqlite database file
}

// HandoffConfig names the slots shared with the neighbouring steps.
type HandoffConfig struct {
	SourcePrefix string `yaml:"source_prefix"`
	ResultSlot   string `yaml:"result_slot"`
	ResultName   string `yaml:"result_name"`
}

// ExportConfig controls the encoder.
type ExportConfig struct {
	Quality float64 `yaml:"quality"` // (0,1]
}

// ViewportConfig controls zoom.
type ViewportConfig struct {
	Sensitivity float64 `yaml:"sensitivity"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a YAML file, fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, fills in defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	return &c, c.Validate()
}

// FromEnv loads the file named by IMAGE_ADJUST_CONFIG, if any, and applies
// the remaining environment overrides.
func FromEnv() (*Config, error) {
	c := Default()
	if path := os.Getenv(EnvConfig); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}
	c.applyEnv(os.Getenv)
	return c, c.Validate()
}

// applyEnv overrides fields from the environment. IMAGE_ADJUST_STORE is
// either "memory" or the path of a SQLite database.
func (c *Config) applyEnv(getenv func(string) string) {
	if lvl := getenv(EnvLogLevel); lvl != "" {
		c.Log.Level = lvl
	}
	switch store := getenv(EnvStore); store {
	case "":
	case "memory":
		c.Store.Driver = "memory"
		c.Store.Path = ""
	default:
		c.Store.Driver = "sqlite"
		c.Store.Path = store
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Handoff.SourcePrefix == "" {
		c.Handoff.SourcePrefix = "pending/"
	}
	if c.Handoff.ResultSlot == "" {
		c.Handoff.ResultSlot = "export/edited"
	}
	if c.Handoff.ResultName == "" {
		c.Handoff.ResultName = "edited-image.jpg"
	}
	if c.Export.Quality <= 0 || math.IsNaN(c.Export.Quality) {
		c.Export.Quality = 0.95
	}
	if c.Export.Quality > 1 {
		c.Export.Quality = 1
	}
	if c.Viewport.Sensitivity == 0 {
		c.Viewport.Sensitivity = 0.001
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported store.driver %q (use memory or sqlite)", c.Store.Driver)
	}
	if strings.HasPrefix(c.Handoff.ResultSlot, c.Handoff.SourcePrefix) {
		return fmt.Errorf("handoff.result_slot %q must not start with handoff.source_prefix %q",
			c.Handoff.ResultSlot, c.Handoff.SourcePrefix)
	}
	if math.IsNaN(c.Viewport.Sensitivity) || math.IsInf(c.Viewport.Sensitivity, 0) {
		return fmt.Errorf("viewport.sensitivity must be finite")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}
