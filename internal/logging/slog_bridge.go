package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// bridgeHandler is a slog.Handler that routes records through the leveled
// logger so library output lands in the same streams as ours.
type bridgeHandler struct {
	attrs []slog.Attr
	group string
}

// Slog returns a *slog.Logger that writes through this package.
func Slog() *slog.Logger {
	return slog.New(&bridgeHandler{})
}

func fromSlogLevel(level slog.Level) LogLevel {
	switch {
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return GetLevel() <= fromSlogLevel(level)
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)

	// h.attrs already carry their group prefix
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", h.qualify(a.Key), a.Value.Any())
		return true
	})

	line := b.String()
	switch fromSlogLevel(r.Level) {
	case LevelDebug:
		Debug("%s", line)
	case LevelInfo:
		Info("%s", line)
	case LevelWarn:
		Warn("%s", line)
	default:
		Error("%s", line)
	}
	return nil
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &bridgeHandler{attrs: merged, group: h.group}
}

func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &bridgeHandler{attrs: h.attrs, group: group}
}

func (h *bridgeHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}
