// Package config provides configuration loading and access for simulation
// scenarios.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds a full simulation scenario.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Genotypes []string        `yaml:"genotypes"`
	Init      []InitConfig    `yaml:"init"`
	Rates     RatesConfig     `yaml:"rates"`
	Dispersal DispersalConfig `yaml:"dispersal"`
	Run       RunConfig       `yaml:"run"`
	Lineages  LineagesConfig  `yaml:"lineages"`
	Output    OutputConfig    `yaml:"output"`
}

// GridConfig describes the rectangular landscape.
type GridConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Resolution float64 `yaml:"resolution"`
}

// InitConfig places an initial count of one genotype at one cell.
type InitConfig struct {
	Cell     int     `yaml:"cell"`
	Genotype string  `yaml:"genotype"`
	Count    float64 `yaml:"count"`
}

// RateConfig is one vital rate: a constant or a per-genotype vector.
// Capacity (germination only) enables density-dependent germination with
// the given carrying capacity.
type RateConfig struct {
	Constant    *float64  `yaml:"constant"`
	PerGenotype []float64 `yaml:"per_genotype"`
	Capacity    float64   `yaml:"capacity"`
}

// RatesConfig holds the per-generation vital rates.
type RatesConfig struct {
	Seeding     RateConfig `yaml:"seeding"`
	Germination RateConfig `yaml:"germination"`
	Survival    RateConfig `yaml:"survival"`
	Fecundity   float64    `yaml:"fecundity"`
}

// KernelConfig describes one dispersal kernel.
type KernelConfig struct {
	Kernel    string  `yaml:"kernel"`
	Sigma     float64 `yaml:"sigma"`
	Radius    float64 `yaml:"radius"`
	MinWeight float64 `yaml:"min_weight"`
	Normalize float64 `yaml:"normalize"`
}

// DispersalConfig holds the pollen and seed kernels.
type DispersalConfig struct {
	Pollen KernelConfig `yaml:"pollen"`
	Seed   KernelConfig `yaml:"seed"`
}

// RunConfig holds run control parameters.
type RunConfig struct {
	Generations   int    `yaml:"generations"`
	SnapshotEvery int    `yaml:"snapshot_every"`
	Seed          uint64 `yaml:"seed"`
	Expected      bool   `yaml:"expected"`
	RetainHistory bool   `yaml:"retain_history"`
}

// LineagesConfig requests backward lineage tracing from the final
// generation. Count zero disables tracing.
type LineagesConfig struct {
	Count    int    `yaml:"count"`
	Cell     int    `yaml:"cell"`
	Genotype string `yaml:"genotype"`
}

// OutputConfig holds experiment output settings.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks scenario consistency.
func (c *Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("config: grid dimensions must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if c.Grid.Resolution <= 0 {
		return fmt.Errorf("config: grid resolution must be positive, got %v", c.Grid.Resolution)
	}
	if len(c.Genotypes) == 0 {
		return fmt.Errorf("config: at least one genotype is required")
	}
	if c.Run.Generations < 0 {
		return fmt.Errorf("config: generations must be non-negative, got %d", c.Run.Generations)
	}
	if c.Run.SnapshotEvery <= 0 {
		return fmt.Errorf("config: snapshot_every must be positive, got %d", c.Run.SnapshotEvery)
	}
	for _, rc := range []struct {
		name string
		r    RateConfig
	}{
		{"seeding", c.Rates.Seeding},
		{"germination", c.Rates.Germination},
		{"survival", c.Rates.Survival},
	} {
		if rc.r.Constant == nil && len(rc.r.PerGenotype) == 0 {
			return fmt.Errorf("config: rate %s needs a constant or a per_genotype vector", rc.name)
		}
		if len(rc.r.PerGenotype) > 0 && len(rc.r.PerGenotype) != len(c.Genotypes) {
			return fmt.Errorf("config: rate %s has %d per_genotype entries for %d genotypes", rc.name, len(rc.r.PerGenotype), len(c.Genotypes))
		}
	}
	if c.Rates.Fecundity < 0 {
		return fmt.Errorf("config: fecundity must be non-negative, got %v", c.Rates.Fecundity)
	}
	return nil
}

// WriteYAML saves the configuration to a file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
