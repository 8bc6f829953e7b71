// Package config provides configuration loading and management for bmeview.
// It handles loading configuration from YAML or TOML files, environment
// overrides and default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"bmeview/internal/models"
	"bmeview/pkg/bmeii"
	"bmeview/pkg/colormap"
	"bmeview/pkg/conversion"
	"bmeview/pkg/watch"
)

// Config represents the application configuration
type Config struct {
	// Browsing parameters
	Browse struct {
		// Root is the directory whose sub-directories hold the studies
		Root string `yaml:"root" toml:"root"`
	} `yaml:"browse" toml:"browse"`

	// Rendering parameters
	Render struct {
		// Colormap is the active palette name
		Colormap string `yaml:"colormap" toml:"colormap"`

		// CacheDir receives the rendered rasters; it is emptied before every batch
		CacheDir string `yaml:"cacheDir" toml:"cache_dir"`
	} `yaml:"render" toml:"render"`

	// Processing parameters
	Processing struct {
		// Workers is the number of files converted in parallel
		Workers int `yaml:"workers" toml:"workers"`

		// Layout is the payload layout: legacy or dense
		Layout string `yaml:"layout" toml:"layout"`

		// ByteOrder of the volume files: native, little or big
		ByteOrder string `yaml:"byteOrder" toml:"byte_order"`

		// Plane is the slice rendered from dense volumes
		Plane int `yaml:"plane" toml:"plane"`

		// MaxPayloadBytes rejects volumes declaring a larger payload
		MaxPayloadBytes uint64 `yaml:"maxPayloadBytes" toml:"max_payload_bytes"`
	} `yaml:"processing" toml:"processing"`

	// Selection parameters
	Selection struct {
		// File is the CSV the selections are exported to and imported from
		File string `yaml:"file" toml:"file"`
	} `yaml:"selection" toml:"selection"`

	// Watch parameters
	Watch struct {
		// Debounce is the quiet period before a refresh, as a Go duration
		Debounce string `yaml:"debounce" toml:"debounce"`
	} `yaml:"watch" toml:"watch"`

	// Output parameters
	Output struct {
		// LogLevel is one of debug, info, warn, error
		LogLevel string `yaml:"logLevel" toml:"log_level"`

		// LogFormat is console or json
		LogFormat string `yaml:"logFormat" toml:"log_format"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Browse.Root = "."

	cfg.Render.Colormap = colormap.DefaultName
	cfg.Render.CacheDir = DefaultCacheDir()

	cfg.Processing.Workers = conversion.DefaultWorkers
	cfg.Processing.Layout = models.LayoutLegacy.String()
	cfg.Processing.ByteOrder = "native"
	cfg.Processing.MaxPayloadBytes = bmeii.DefaultMaxPayloadBytes

	cfg.Selection.File = "selection.csv"

	cfg.Watch.Debounce = watch.DefaultDebounce.String()

	cfg.Output.LogLevel = "info"
	cfg.Output.LogFormat = "console"

	return cfg
}

// DefaultCacheDir returns the per-user preview cache directory
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "bmeview", "previews")
	}
	return filepath.Join(os.TempDir(), "bmeview-previews")
}

// DefaultConfigPath returns ~/.config/bmeview/config.yaml, or "" when the
// user config directory is unknown.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bmeview", "config.yaml")
	}
	return ""
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file, chosen by extension
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	var err error
	if isTOML(configPath) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks every field that can be checked without touching the disk
func (c *Config) Validate() error {
	if c.Render.CacheDir == "" {
		return fmt.Errorf("render.cacheDir is required")
	}
	if c.Processing.Workers <= 0 {
		return fmt.Errorf("processing.workers must be positive, got %d", c.Processing.Workers)
	}
	if c.Processing.Plane < 0 {
		return fmt.Errorf("processing.plane must not be negative, got %d", c.Processing.Plane)
	}

	registry, err := colormap.NewRegistry()
	if err != nil {
		return err
	}
	if _, err := registry.Lookup(c.Render.Colormap); err != nil {
		return fmt.Errorf("render.colormap: %w", err)
	}

	if _, err := c.DecodeOptions(); err != nil {
		return err
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}

	switch c.Output.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("output.logFormat must be console or json, got %q", c.Output.LogFormat)
	}

	return nil
}

// DecodeOptions converts the processing section into decoder options
func (c *Config) DecodeOptions() (bmeii.Options, error) {
	layout, err := models.ParseLayout(c.Processing.Layout)
	if err != nil {
		return bmeii.Options{}, fmt.Errorf("processing.layout: %w", err)
	}
	order, err := bmeii.ParseByteOrder(c.Processing.ByteOrder)
	if err != nil {
		return bmeii.Options{}, fmt.Errorf("processing.byteOrder: %w", err)
	}
	if layout == models.LayoutLegacy && c.Processing.Plane != 0 {
		return bmeii.Options{}, fmt.Errorf("processing.plane: legacy volumes only expose plane 0")
	}

	return bmeii.Options{
		Layout:          layout,
		ByteOrder:       order,
		MaxPayloadBytes: c.Processing.MaxPayloadBytes,
	}, nil
}

// ConversionSettings converts the configuration into converter settings
func (c *Config) ConversionSettings() (conversion.Settings, error) {
	opts, err := c.DecodeOptions()
	if err != nil {
		return conversion.Settings{}, err
	}

	return conversion.Settings{
		CacheDir: c.Render.CacheDir,
		Colormap: c.Render.Colormap,
		Workers:  c.Processing.Workers,
		Plane:    c.Processing.Plane,
		Decode:   opts,
	}, nil
}

// DebounceDuration parses the watch debounce
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return watch.DefaultDebounce, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("watch.debounce must be positive, got %s", d)
	}
	return d, nil
}

// EnsureCacheDir creates the cache directory if it is missing
func (c *Config) EnsureCacheDir() error {
	return conversion.EnsureCache(c.Render.CacheDir)
}
