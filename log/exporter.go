// Package log implements log in golang.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config the log config, bound from the Log section of the config file
type Config struct {
	// Level debug, info, warn or error
	Level string `yaml:"level"`
	// Format json or text
	Format string `yaml:"format"`
}

// Init replace the default logger, an empty field keeps the current value.
func Init(c Config) error {
	return initTo(os.Stdout, c)
}

func initTo(w io.Writer, c Config) error {
	if c.Level != "" {
		if err := setLevel(c.Level); err != nil {
			return err
		}
	}
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: std.level}
	switch strings.ToLower(c.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return &formatError{c.Format}
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	std.mu.Lock()
	std.logger = logger
	std.mu.Unlock()
	return nil
}

// New a request scoped logger with tags, more tags can be injected later.
func New(tags map[string]any) Logger {
	return std.newWithTags(tags)
}

type formatError struct{ format string }

func (e *formatError) Error() string { return "log format " + e.format + " does not supported" }

// Action set action filed for logger
func Action(action string) StdLogger {
	return std.Action(action)
}

// With any map data, the value of key must be string, int ... basic value
func With(m map[string]any) StdLogger {
	return std.With(m)
}

// SetLevel set the log level with: debug, info, warn, error
func SetLevel(level string) {
	if err := setLevel(level); err != nil {
		panic(err)
	}
}

func setLevel(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return err
	}
	std.level.Set(l)
	return nil
}
