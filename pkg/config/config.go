// Package config holds the generator settings that are not part of the
// authored catalog: seed, climate, projection limits, mesh detail, output
// and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config captures everything one generation run needs besides the catalog.
type Config struct {
	Seed       uint64           `yaml:"seed" toml:"seed"`
	Climate    ClimateConfig    `yaml:"climate" toml:"climate"`
	Projection ProjectionConfig `yaml:"projection" toml:"projection"`
	Mesh       MeshConfig       `yaml:"mesh" toml:"mesh"`
	Output     OutputConfig     `yaml:"output" toml:"output"`
	Log        LogConfig        `yaml:"log" toml:"log"`
}

// ClimateConfig selects the biome.
type ClimateConfig struct {
	Temperature float64 `yaml:"temperature" toml:"temperature"` // °C, -15..30
	Rainfall    float64 `yaml:"rainfall" toml:"rainfall"`       // cm, 0..450
}

type ProjectionConfig struct {
	MaxIncline        float64 `yaml:"max_incline" toml:"max_incline"`                 // degrees
	CheckHeightOffset float64 `yaml:"check_height_offset" toml:"check_height_offset"` // above ground bounds
	CheckEncroachment bool    `yaml:"check_encroachment" toml:"check_encroachment"`
	Target            string  `yaml:"target" toml:"target"` // name of the ground object
	MaxRejections     int     `yaml:"max_rejections" toml:"max_rejections"`
}

type MeshConfig struct {
	LODLevels int     `yaml:"lod_levels" toml:"lod_levels"`
	MinRadius float64 `yaml:"min_radius" toml:"min_radius"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir" toml:"dir"`
	Manifest string `yaml:"manifest" toml:"manifest"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Seed: 1,
		Climate: ClimateConfig{
			Temperature: 9,
			Rainfall:    125,
		},
		Projection: ProjectionConfig{
			MaxIncline:        10,
			CheckHeightOffset: 5,
			CheckEncroachment: false,
			Target:            "ground",
			MaxRejections:     25,
		},
		Mesh: MeshConfig{
			LODLevels: 1,
			MinRadius: 0.002,
		},
		Output: OutputConfig{
			Dir:      "out",
			Manifest: "manifest.yaml",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML (.yaml, .yml) or TOML (.toml) file.
// An empty path returns defaults. Values the file leaves out keep their
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Climate.Temperature < -15 || c.Climate.Temperature > 30 {
		return errors.New("climate.temperature must be in [-15, 30]")
	}
	if c.Climate.Rainfall < 0 || c.Climate.Rainfall > 450 {
		return errors.New("climate.rainfall must be in [0, 450]")
	}
	if c.Projection.MaxIncline <= 0 || c.Projection.MaxIncline > 90 {
		return errors.New("projection.max_incline must be in (0, 90]")
	}
	if c.Projection.CheckHeightOffset < 0 {
		return errors.New("projection.check_height_offset cannot be negative")
	}
	if c.Projection.Target == "" {
		return errors.New("projection.target must be set")
	}
	if c.Projection.MaxRejections < 0 {
		return errors.New("projection.max_rejections cannot be negative")
	}
	if c.Mesh.LODLevels < 1 {
		return errors.New("mesh.lod_levels must be at least 1")
	}
	if c.Mesh.MinRadius < 0 {
		return errors.New("mesh.min_radius cannot be negative")
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir must be set")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
