// Package config provides configuration loading and access for the
// simulation: the world layout, the bot/field tuning knobs of spec.md §3,
// and telemetry sampling. It follows the teacher's embed-defaults-then-
// overlay-user-file singleton pattern.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/cyberfield/bot"
	"github.com/pthm-cable/cyberfield/topology"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Settings  bot.Settings    `yaml:"settings"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the grid's shape, size and seed.
type WorldConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	Topology string  `yaml:"topology"`
	Seed     uint64  `yaml:"seed"`
	Density  float64 `yaml:"density"`
}

// TelemetryConfig holds tick-history sampling parameters.
type TelemetryConfig struct {
	SampleEvery int    `yaml:"sample_every"`
	HistoryCap  int    `yaml:"history_cap"`
	CSVPath     string `yaml:"csv_path"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Area         int           // World.Width * World.Height
	TopologyKind topology.Kind // parsed from World.Topology
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	c.Derived.Area = c.World.Width * c.World.Height
	kind, err := topology.ParseKind(c.World.Topology)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Derived.TopologyKind = kind
	return nil
}
