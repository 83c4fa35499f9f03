// Package logger provides structured logging with colored output.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// New creates a structured logger writing to stderr at the given level, so
// log output never mixes with command output on stdout. Uses colored text
// format by default, JSON if LOG_FORMAT=json env var is set. Colors can be
// disabled by setting NO_COLOR=1 or LOG_COLOR=false.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with an explicit destination, mainly for tests.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	l := parseLevel(level)

	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: l,
		})
	} else {
		handler = &coloredTextHandler{
			w:        w,
			level:    l,
			useColor: shouldUseColor(),
		}
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// shouldUseColor determines if colored output should be used.
func shouldUseColor() bool {
	// Respect NO_COLOR env var (https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	// Respect LOG_COLOR env var
	if logColor := strings.ToLower(os.Getenv("LOG_COLOR")); logColor == "false" || logColor == "0" {
		return false
	}
	return true
}

// coloredTextHandler is a custom slog.Handler that outputs colored text logs.
type coloredTextHandler struct {
	w        io.Writer
	level    slog.Level
	useColor bool
	attrs    []slog.Attr
	groups   []string
}

func (h *coloredTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *coloredTextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	h.colored(&buf, colorGray, r.Time.Format("2006-01-02 15:04:05"))
	buf.WriteString(" ")

	levelColor, levelStr := levelStyle(r.Level)
	h.colored(&buf, levelColor, levelStr)
	buf.WriteString(" ")

	buf.WriteString(r.Message)

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		h.colored(&buf, colorGray, a.Key+"="+a.Value.String())
		return true
	})
	for _, a := range h.attrs {
		buf.WriteString(" ")
		h.colored(&buf, colorGray, a.Key+"="+a.Value.String())
	}

	buf.WriteString("\n")
	_, err := h.w.Write([]byte(buf.String()))
	return err
}

// colored writes s wrapped in the given color when colors are enabled.
func (h *coloredTextHandler) colored(buf *strings.Builder, color, s string) {
	if h.useColor {
		buf.WriteString(color)
	}
	buf.WriteString(s)
	if h.useColor {
		buf.WriteString(colorReset)
	}
}

func levelStyle(level slog.Level) (color, label string) {
	switch {
	case level >= slog.LevelError:
		return colorRed + colorBold, "ERROR"
	case level >= slog.LevelWarn:
		return colorYellow, "WARN "
	case level >= slog.LevelInfo:
		return colorBlue, "INFO "
	default:
		return colorCyan, "DEBUG"
	}
}

func (h *coloredTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &coloredTextHandler{
		w:        h.w,
		level:    h.level,
		useColor: h.useColor,
		attrs:    newAttrs,
		groups:   h.groups,
	}
}

func (h *coloredTextHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name
	return &coloredTextHandler{
		w:        h.w,
		level:    h.level,
		useColor: h.useColor,
		attrs:    h.attrs,
		groups:   newGroups,
	}
}
