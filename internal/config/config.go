// Package config handles slotlife.toml pipeline configuration.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// FileName is the configuration file looked up by FindAndLoad
const FileName = "slotlife.toml"

// Config represents a slotlife.toml file.
type Config struct {
	Pipeline Pipeline `toml:"pipeline"`
	Debug    Debug    `toml:"debug"`
	Log      Log      `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Pipeline selects the passes to run.
type Pipeline struct {
	Split          bool `toml:"split"`
	Promote        bool `toml:"promote"`
	Coalesce       bool `toml:"coalesce"`
	VerifyColoring bool `toml:"verify-coloring"`
	Workers        int  `toml:"workers"`
}

// Debug configures how debug tables are interpreted.
type Debug struct {
	SyntheticMarker string `toml:"synthetic-marker"`
}

// Log configures logging verbosity (0 quiet, 1 info, 2 debug).
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Pipeline: Pipeline{
			Split:          true,
			Promote:        true,
			Coalesce:       true,
			VerifyColoring: true,
			Workers:        runtime.NumCPU(),
		},
		Debug: Debug{SyntheticMarker: "$"},
		Log:   Log{Verbosity: 1},
	}
}

// Load parses a configuration file. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	c.Path = path

	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a slotlife.toml file and
// loads it. Defaults are returned if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 1 {
		return errors.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Log.Verbosity < 0 {
		return errors.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	return nil
}
