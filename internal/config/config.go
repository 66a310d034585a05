// Package config loads and validates the .benchsweep.yaml sweep file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/benchsweep/internal/sweep"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up from the working directory upward.
const FileName = ".benchsweep.yaml"

// Default values for optional settings.
const (
	DefaultReadyMarker  = "all chunks loaded"
	DefaultResultPrefix = "benchmark: "
	DefaultDwell        = 10 * time.Second
	DefaultDrainTimeout = 2 * time.Second
	DefaultMaxOutput    = 1 << 20 // 1 MB
	DefaultOutput       = "results.csv"
	DefaultStoreDriver  = "disk"
	DefaultStorePath    = ".benchsweep/runs"
)

// ErrNotFound is returned by Load when no config file exists in the
// working directory or any of its parents.
var ErrNotFound = errors.New(FileName + " not found")

// Config holds the parsed sweep configuration. Only Command and Matrix
// are required; zero values elsewhere select the defaults above.
type Config struct {
	Version         int          `yaml:"version"`
	Command         []string     `yaml:"command"` // argv templates, e.g. --fov={{.fov}}
	Dir             string       `yaml:"dir"`     // working directory of the target
	Env             []string     `yaml:"env"`     // extra KEY=VALUE pairs
	Matrix          sweep.Matrix `yaml:"matrix"`  // last axis varies slowest
	RawReadyMarker  string       `yaml:"ready_marker"`
	RawResultPrefix string       `yaml:"result_prefix"`
	RawDwell        string       `yaml:"dwell"`         // e.g. "10s"
	RawDrainTimeout string       `yaml:"drain_timeout"` // e.g. "2s"
	RawMaxOutput    int          `yaml:"max_output"`    // bytes
	Output          string       `yaml:"output"`        // CSV path
	Store           StoreConfig  `yaml:"store"`
}

// StoreConfig selects where finished sweeps are kept.
type StoreConfig struct {
	Driver string `yaml:"driver"` // disk or sqlite
	Path   string `yaml:"path"`   // directory (disk) or database file (sqlite)
}

// ReadyMarker returns the configured readiness line or the default.
func (c *Config) ReadyMarker() string {
	if c.RawReadyMarker != "" {
		return c.RawReadyMarker
	}
	return DefaultReadyMarker
}

// ResultPrefix returns the configured result line prefix or the default.
func (c *Config) ResultPrefix() string {
	if c.RawResultPrefix != "" {
		return c.RawResultPrefix
	}
	return DefaultResultPrefix
}

// Dwell returns the measurement window. "0s" is honoured.
func (c *Config) Dwell() time.Duration {
	return parseDuration(c.RawDwell, DefaultDwell)
}

// DrainTimeout returns the bound on the post-interrupt output drain.
func (c *Config) DrainTimeout() time.Duration {
	d := parseDuration(c.RawDrainTimeout, DefaultDrainTimeout)
	if d <= 0 {
		return DefaultDrainTimeout
	}
	return d
}

// MaxOutputBytes returns the per-run capture cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// OutputPath returns the CSV path, relative paths unresolved.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return DefaultOutput
}

// StoreDriver returns the configured store driver or the default.
func (c *Config) StoreDriver() string {
	if c.Store.Driver != "" {
		return c.Store.Driver
	}
	return DefaultStoreDriver
}

// StorePath returns the store location, relative paths unresolved.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.StoreDriver() == "sqlite" {
		return ".benchsweep/runs.db"
	}
	return DefaultStorePath
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// Validate reports settings that would make every run fail.
func (c *Config) Validate() error {
	if len(c.Command) == 0 || c.Command[0] == "" {
		return fmt.Errorf("command is required")
	}
	if len(c.Matrix) == 0 {
		return fmt.Errorf("matrix is required")
	}
	if err := c.Matrix.Validate(); err != nil {
		return fmt.Errorf("matrix: %w", err)
	}
	for name, raw := range map[string]string{"dwell": c.RawDwell, "drain_timeout": c.RawDrainTimeout} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			return fmt.Errorf("%s: invalid duration %q", name, raw)
		}
	}
	switch c.StoreDriver() {
	case "disk", "sqlite":
	default:
		return fmt.Errorf("store.driver: unknown driver %q (want disk or sqlite)", c.Store.Driver)
	}
	return nil
}

// LoadResult holds the parsed config and where it was found.
type LoadResult struct {
	Config *Config
	Path   string // config file
	Root   string // directory containing the config file
}

// Resolve makes p absolute relative to the config file's directory.
func (r *LoadResult) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.Root, p)
}

// Load finds FileName by walking upward from workspace and parses it.
func Load(workspace string) (*LoadResult, error) {
	path, err := findConfig(workspace)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses and validates the config at path.
func LoadFile(path string) (*LoadResult, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &LoadResult{Config: cfg, Path: path, Root: filepath.Dir(path)}, nil
}

// findConfig walks upward from dir looking for FileName.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, FileName)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}
