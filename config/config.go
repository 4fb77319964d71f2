// Package config handles cs160.toml settings shared by the compiler and the runner.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
)

// FileName is the configuration file looked up next to the sources.
const FileName = "cs160.toml"

const DefaultMaxSteps = 10000000

// Config represents a cs160.toml file. Every key is optional.
type Config struct {
	Log     Log     `toml:"log"`
	Codegen Codegen `toml:"codegen"`
	Runner  Runner  `toml:"runner"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"` // empty logs to stderr
}

type Codegen struct {
	Comments bool   `toml:"comments"`
	Output   string `toml:"output"` // empty writes to stdout
}

type Runner struct {
	MaxSteps int `toml:"max-steps"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log:     Log{Verbosity: 1},
		Codegen: Codegen{Comments: true},
		Runner:  Runner{MaxSteps: DefaultMaxSteps},
	}
}

// Load parses the configuration file at path. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path = path

	if c.Runner.MaxSteps <= 0 {
		c.Runner.MaxSteps = DefaultMaxSteps
	}
	if c.Log.Verbosity < 0 {
		c.Log.Verbosity = 0
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a cs160.toml file and loads it.
// Defaults are returned when no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
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

// LogPath returns the log file for commonlog.Configure, nil for stderr.
func (c *Config) LogPath() *string {
	if c.Log.Path == "" {
		return nil
	}
	return &c.Log.Path
}

// ConfigureLog installs an unbuffered simple backend and points it at the
// configured log path, so every line is on disk as soon as it is logged.
func (c *Config) ConfigureLog() {
	backend := simple.NewBackend()
	backend.Buffered = false
	commonlog.SetBackend(backend)
	commonlog.Configure(c.Log.Verbosity, c.LogPath())
}
