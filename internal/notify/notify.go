// Package notify carries short user-facing messages about board operations.
// Delivery is fire-and-forget; nothing here affects whether an operation succeeded.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Kind is the tone of a message.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
	Warning Kind = "warning"
)

// DefaultDuration is how long a message stays visible when no duration is given.
const DefaultDuration = 4 * time.Second

// Options describe how a message is shown.
type Options struct {
	Kind     Kind
	Duration time.Duration
}

// Notifier shows transient messages.
type Notifier interface {
	Show(message string, opts Options)
}

// Func adapts a function to Notifier.
type Func func(message string, opts Options)

func (f Func) Show(message string, opts Options) { f(message, opts) }

// Discard drops every message.
var Discard Notifier = Func(func(string, Options) {})

// Log writes messages to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Show(message string, opts Options) {
	opts = opts.withDefaults()
	level := slog.LevelInfo
	switch opts.Kind {
	case Error:
		level = slog.LevelError
	case Warning:
		level = slog.LevelWarn
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), level, message, slog.String("kind", string(opts.Kind)), slog.Duration("duration", opts.Duration))
}

func (o Options) withDefaults() Options {
	if o.Kind == "" {
		o.Kind = Info
	}
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	return o
}
