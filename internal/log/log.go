// Package log builds a [log/slog] handler for the CLI's --log-level and
// --log-format flags.
package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format is the log output encoding.
type Format string

const (
	// FormatJSON writes logs as JSON objects.
	FormatJSON Format = "json"
	// FormatText writes logs in slog's default key=value text form.
	FormatText Format = "text"
)

var (
	// ErrUnknownLevel indicates an unrecognized --log-level value.
	ErrUnknownLevel = errors.New("unknown log level")
	// ErrUnknownFormat indicates an unrecognized --log-format value.
	ErrUnknownFormat = errors.New("unknown log format")
)

// NewHandlerFromStrings parses level and format and builds a [slog.Handler]
// writing to w.
func NewHandlerFromStrings(w io.Writer, level, format string) (slog.Handler, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	frmt, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return NewHandler(w, lvl, frmt), nil
}

// NewHandler builds a [slog.Handler] writing to w at the given level and
// format.
func NewHandler(w io.Writer, level slog.Level, format Format) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel parses a --log-level flag value.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
}

// ParseFormat parses a --log-format flag value.
func ParseFormat(format string) (Format, error) {
	switch Format(strings.ToLower(format)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
