// Package tracelog provides a slog.Handler that writes a plain
// "time level message attrs..." line per record, generalized from
// rcornwell-S370's util/logger.LogHandler (a wrapper that always tees to
// stderr in debug mode while optionally also writing to a file). This
// simulator has only one sink and no debug/non-debug split, so the wrapper
// is simplified to that one case while keeping the same line format.
package tracelog

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Handler formats records as "time level message attrs..." and writes them
// to a single io.Writer, guarded by a mutex so concurrent slog.Logger
// callers (unused by this single-hart simulator today, but cheap to keep)
// never interleave lines.
type Handler struct {
	out         io.Writer
	mu          *sync.Mutex
	min         slog.Level
	attrsPrefix string
}

// NewHandler creates a Handler writing to w, only emitting records at or
// above min.
func NewHandler(w io.Writer, min slog.Level) *Handler {
	return &Handler{out: w, mu: &sync.Mutex{}, min: min}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.withAttrs(attrs)
}

func (h *Handler) withAttrs(attrs []slog.Attr) *Handler {
	return &Handler{out: h.out, mu: h.mu, min: h.min, attrsPrefix: formatAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	// No component in this simulator nests slog groups; this is a no-op
	// that returns the handler unchanged, so the group name is dropped.
	return h
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	parts := []string{r.Time.Format("15:04:05.000"), r.Level.String() + ":", r.Message}
	if h.attrsPrefix != "" {
		parts = append(parts, h.attrsPrefix)
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, formatAttr(a))
		return true
	})
	line := strings.Join(parts, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write([]byte(line))
	return err
}

func formatAttr(a slog.Attr) string {
	return a.Key + "=" + a.Value.String()
}

func formatAttrs(attrs []slog.Attr) string {
	var b strings.Builder
	for i, a := range attrs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatAttr(a))
	}
	return b.String()
}
