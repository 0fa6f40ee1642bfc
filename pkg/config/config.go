// Package config loads the norepeat configuration file.
//
// Every field is optional. Resolution order for each setting is: command
// line flag, environment variable, config file, built-in default. Flags are
// applied by the CLI; this package handles the rest. Relative paths are
// relative to the working directory, not to the config file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/daviddao/norepeat/pkg/catalog"
	"github.com/daviddao/norepeat/pkg/logx"
	"github.com/daviddao/norepeat/pkg/model"
	"github.com/daviddao/norepeat/pkg/schedule"
)

// Defaults.
const (
	DefaultDir     = ".norepeat"
	DefaultPath    = DefaultDir + "/config.yaml"
	DefaultDB      = DefaultDir + "/norepeat.db"
	DefaultCatalog = "catalog.yaml"
)

// Environment overrides.
const (
	EnvConfig   = "NOREPEAT_CONFIG"
	EnvDB       = "NOREPEAT_DB"
	EnvRotation = "NOREPEAT_ROTATION"
)

// Config is the on-disk configuration.
type Config struct {
	DB       string `yaml:"db,omitempty"`
	Catalog  string `yaml:"catalog,omitempty"`
	Rotation string `yaml:"rotation,omitempty"`

	// Schedule is written to the rotation by `nr init` when the database
	// has none yet. nil means schedule.Default.
	Schedule *schedule.Config `yaml:"schedule,omitempty"`

	// Timezone is an IANA name; "" or "Local" uses the host zone.
	Timezone string `yaml:"timezone,omitempty"`

	Filter catalog.Filter `yaml:"filter,omitempty"`
	Log    logx.Config    `yaml:"log,omitempty"`

	// Path is where the config was loaded from, "" if no file was read.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB:       DefaultDB,
		Catalog:  DefaultCatalog,
		Rotation: model.DefaultRotation,
	}
}

// Load reads the config at path (or $NOREPEAT_CONFIG, or DefaultPath when
// path is ""). A missing file yields defaults unless the path was given
// explicitly. Environment overrides are applied last.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = envOr(EnvConfig, "")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file; defaults
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.DB = envOr(EnvDB, cfg.DB)
	cfg.Rotation = envOr(EnvRotation, cfg.Rotation)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.DB == "" {
		c.DB = d.DB
	}
	if c.Catalog == "" {
		c.Catalog = d.Catalog
	}
	if c.Rotation == "" {
		c.Rotation = d.Rotation
	}
}

// Validate checks fields that cannot be checked while decoding.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format %q: want console or json", c.Log.Format)
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ScheduleOrDefault returns the configured schedule or schedule.Default.
func (c Config) ScheduleOrDefault() schedule.Config {
	if c.Schedule == nil {
		return schedule.Default
	}
	return *c.Schedule
}

// Write stores cfg at path as YAML, creating the directory.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
