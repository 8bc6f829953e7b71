// Package logging builds the zerolog logger shared by the CLI commands.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the given level. Format "console"
// (or empty) produces human readable lines with RFC3339 timestamps, "json"
// produces one JSON object per line.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	var out io.Writer
	switch strings.ToLower(format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
		out = w
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q (must be console or json)", format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
