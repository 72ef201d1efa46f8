// Package config loads midgardc settings from a TOML file and the
// environment.
//
// A midgardc.toml file looks like:
//
//	[encode]
//	workers = 8
//	validate = true
//
//	[cache]
//	enabled = true
//	path = "~/.cache/midgard/binaries.db"
//
//	[log]
//	verbosity = 1
//
// Environment variables override the file: MIDGARD_WORKERS,
// MIDGARD_VALIDATE, MIDGARD_CACHE, MIDGARD_CACHE_PATH and
// MIDGARD_VERBOSITY.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
)

// FileName is the configuration file looked up by Find.
const FileName = "midgardc.toml"

// Config is the complete midgardc configuration.
type Config struct {
	Encode EncodeConfig `toml:"encode"`
	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`
}

// EncodeConfig controls the encoder.
type EncodeConfig struct {
	Workers  int  `toml:"workers"`
	Validate bool `toml:"validate"`
}

// CacheConfig controls the binary cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig controls CLI logging. Verbosity 0 logs errors only; each step
// up enables a more detailed level.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Encode: EncodeConfig{Validate: true},
		Cache:  CacheConfig{Path: defaultCachePath()},
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".midgard", "binaries.db")
	}
	return filepath.Join(dir, "midgard", "binaries.db")
}

// Load parses the TOML file at path on top of the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	}

	c.applyEnv()
	c.Cache.Path = expandHome(c.Cache.Path)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Find loads FileName from dir when it exists and falls back to the
// defaults plus environment overrides otherwise.
func Find(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Load("")
		}
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	c.Encode.Workers = env.Int("MIDGARD_WORKERS", c.Encode.Workers)
	if env.Has("MIDGARD_VALIDATE") {
		c.Encode.Validate = env.Bool("MIDGARD_VALIDATE")
	}
	if env.Has("MIDGARD_CACHE") {
		c.Cache.Enabled = env.Bool("MIDGARD_CACHE")
	}
	c.Cache.Path = env.Str("MIDGARD_CACHE_PATH", c.Cache.Path)
	c.Log.Verbosity = env.Int("MIDGARD_VERBOSITY", c.Log.Verbosity)
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Encode.Workers < 0 {
		return fmt.Errorf("encode.workers must not be negative, got %d", c.Encode.Workers)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return errors.New("cache.path is required when the cache is enabled")
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
