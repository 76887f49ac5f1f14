// Package log routes log/slog records from a plugin to the host's log sinks.
//
// Records are rendered to a single text line (message followed by
// key=value attributes) and sent through pdk.PDK.Log at the matching level.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/reglet-dev/pdk"
)

// Logger is the part of pdk.PDK the handler needs.
type Logger interface {
	Log(level pdk.LogLevel, msg string)
}

// Handler implements slog.Handler on top of the host log imports.
type Handler struct {
	logger Logger
	opts   handlerConfig
	attrs  []string
	group  string
}

// HandlerOption configures the Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level are dropped before reaching the host.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		if level != nil {
			c.level = level
		}
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewHandler creates a Handler writing through l.
func NewHandler(l Logger, opts ...HandlerOption) *Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler{logger: l, opts: cfg}
}

// Install makes a Handler over the default PDK the slog default. Call it
// from the plugin's init or main; outside a wasm runtime it panics.
func Install(opts ...HandlerOption) *slog.Logger {
	l := slog.New(NewHandler(pdk.Default(), opts...))
	slog.SetDefault(l)
	return l
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// Handle renders the record and hands it to the host. It never fails;
// delivery is best effort.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Message)

	for _, a := range h.attrs {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	record.Attrs(func(attr slog.Attr) bool {
		for _, a := range renderAttr(h.group, attr) {
			sb.WriteByte(' ')
			sb.WriteString(a)
		}
		return true
	})

	if h.opts.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		fmt.Fprintf(&sb, " source=%s:%d", frame.File, frame.Line)
	}

	h.logger.Log(levelFor(record.Level), sb.String())
	return nil
}

// WithAttrs returns a Handler that renders attrs on every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append([]string(nil), h.attrs...)
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, renderAttr(h.group, attr)...)
	}
	return &clone
}

// WithGroup returns a Handler that qualifies later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

// levelFor maps a slog level onto the four host sinks.
func levelFor(level slog.Level) pdk.LogLevel {
	switch {
	case level >= slog.LevelError:
		return pdk.LogError
	case level >= slog.LevelWarn:
		return pdk.LogWarn
	case level >= slog.LevelInfo:
		return pdk.LogInfo
	default:
		return pdk.LogDebug
	}
}
