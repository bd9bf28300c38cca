package callback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/llehouerou/subcue/internal/protocol"
)

// Prefixes of mirrored log lines.
const (
	prefixError = "[ERROR]"
	prefixInfo  = "[subcue]"
)

// LogHandler forwards records to next and mirrors those at or above level to
// the host as debugLog events.
type LogHandler struct {
	next     slog.Handler
	notifier Notifier
	level    slog.Leveler
	attrs    []slog.Attr
	group    string
}

// NewLogHandler wraps next.
func NewLogHandler(next slog.Handler, notifier Notifier, level slog.Leveler) *LogHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LogHandler{next: next, notifier: notifier, level: level}
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() || h.next.Enabled(ctx, level)
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		h.notifier.Notify(protocol.DebugLog{Message: h.format(r)})
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	return &clone
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	if h.group != "" {
		name = h.group + "." + name
	}
	clone.group = name
	return &clone
}

func (h *LogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

func (h *LogHandler) format(r slog.Record) string {
	prefix := prefixInfo
	if r.Level >= slog.LevelError {
		prefix = prefixError
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(' ')
	b.WriteString(r.Message)

	write := func(a slog.Attr) {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
	}
	for _, a := range h.attrs {
		write(a)
	}
	var record []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		record = append(record, a)
		return true
	})
	for _, a := range h.qualify(record) {
		write(a)
	}
	return b.String()
}

var _ slog.Handler = (*LogHandler)(nil)
