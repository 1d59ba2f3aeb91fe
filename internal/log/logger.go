// Package log wraps slog with a component attribute so every log line can be
// traced back to the subsystem that wrote it.
package log

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger with the component attribute bound at construction.
// The embedded logger carries the component on every record; base is kept
// unstamped for SetDefault, so packages logging through the bare slog API do
// not inherit another subsystem's component.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// New creates a logger. A nil Handler means text output on stdout at the
// configured level.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	base := slog.New(handler)
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// With returns a logger carrying the extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base,
		component: l.component,
	}
}

// WithComponent returns a logger stamped for a different subsystem.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.base.With(FieldComponent, component),
		base:      l.base,
		component: component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger's handler as the process default, without
// the component attribute, so inner packages pick their own.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.base)
}
