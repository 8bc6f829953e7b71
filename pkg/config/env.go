package config

import (
	"fmt"
	"os"
	"strconv"
)

// ApplyEnvConfig applies configuration from environment variables (BMEVIEW_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("root", os.Getenv("BMEVIEW_ROOT"), &cfg.Browse.Root)
	s.setString("colormap", os.Getenv("BMEVIEW_COLORMAP"), &cfg.Render.Colormap)
	s.setString("cache-dir", os.Getenv("BMEVIEW_CACHE_DIR"), &cfg.Render.CacheDir)
	s.setString("layout", os.Getenv("BMEVIEW_LAYOUT"), &cfg.Processing.Layout)
	s.setString("byte-order", os.Getenv("BMEVIEW_BYTE_ORDER"), &cfg.Processing.ByteOrder)
	s.setString("selection", os.Getenv("BMEVIEW_SELECTION_FILE"), &cfg.Selection.File)
	s.setString("debounce", os.Getenv("BMEVIEW_DEBOUNCE"), &cfg.Watch.Debounce)
	s.setString("log-level", os.Getenv("BMEVIEW_LOG_LEVEL"), &cfg.Output.LogLevel)
	s.setString("log-format", os.Getenv("BMEVIEW_LOG_FORMAT"), &cfg.Output.LogFormat)

	if err := s.setIntFromString("workers", os.Getenv("BMEVIEW_WORKERS"), &cfg.Processing.Workers); err != nil {
		return err
	}
	if err := s.setIntFromString("plane", os.Getenv("BMEVIEW_PLANE"), &cfg.Processing.Plane); err != nil {
		return err
	}

	return nil
}

// configSetter applies values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntFromString parses a non-negative int and sets the destination.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return fmt.Errorf("parse %s: %d must not be negative", flag, i)
	}
	*dst = i
	return nil
}
