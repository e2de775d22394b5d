package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ExternalConfig points at optional HTML/CSS fragments spliced into the
// rendered page: a file pasted into <head>, one at the start of <body>,
// one at the end of <body>, and extra CSS appended to the stylesheet.
type ExternalConfig struct {
	Head   string `yaml:"head" json:"head"`
	Header string `yaml:"header" json:"header"`
	Footer string `yaml:"footer" json:"footer"`
	CSS    string `yaml:"css" json:"css"`
}

// CaptureConfig controls the optional headless-Chromium PNG capture of
// the rendered page after each refresh.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// OutputPath is where the PNG is written; served at /preview.png.
	OutputPath string `yaml:"output_path" json:"output_path"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for serve mode.
	Listen string `yaml:"listen" json:"listen"`

	// Inputs are the directories scanned for git repositories.
	Inputs []string `yaml:"inputs" json:"inputs"`

	// Depth limits how many subdirectory levels are searched below each
	// input. Zero or negative means no limit.
	Depth int `yaml:"depth" json:"depth"`

	// Author is a regex passed to git log --author. Empty counts all
	// commits.
	Author string `yaml:"author" json:"author"`

	// Pull runs git pull in each repository before reading its log.
	Pull bool `yaml:"pull" json:"pull"`

	// CacheLifetimeSeconds is the minimum number of seconds between
	// regenerating the html and css in serve mode.
	CacheLifetimeSeconds int `yaml:"cache_lifetime" json:"cache_lifetime"`

	// CacheFile, if set, is used as backup storage for the cache so a
	// restarted server can answer from the previous snapshot while the
	// first regeneration runs.
	CacheFile string `yaml:"cache_file" json:"cache_file"`

	// RefreshCron is an optional cron-style schedule (e.g. "@every 15m")
	// that pre-warms the cache in the background. If empty, the cache is
	// only refreshed on demand.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	External ExternalConfig `yaml:"external" json:"external"`
	Capture  CaptureConfig  `yaml:"capture" json:"capture"`
}

// Default returns an in-memory default configuration.
func Default() *Config {
	return &Config{
		Listen:               "127.0.0.1:8080",
		Inputs:               []string{},
		CacheLifetimeSeconds: 1,
		Capture: CaptureConfig{
			OutputPath: "preview.png",
			Width:      1280,
			Height:     1024,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Inputs == nil {
		c.Inputs = []string{}
	}
	if c.CacheLifetimeSeconds <= 0 {
		c.CacheLifetimeSeconds = 1
	}
	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = "preview.png"
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1280
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 1024
	}
}

// CacheLifetime returns the configured lifetime as a duration.
func (c *Config) CacheLifetime() time.Duration {
	return time.Duration(c.CacheLifetimeSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (parent
// directory created as needed, 0600 perms) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically via a temp file and
// rename, ensuring 0600 permissions on the result.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".activitygraph-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
