package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a buffered record before truncation.
	MaxLineLength = 1024

	// MaxBufferedLines is the number of records a RingHandler keeps.
	MaxBufferedLines = 100
)

// RingHandler keeps the most recent records at or above a minimum level in
// a circular buffer, and forwards every record to next. While the dashboard
// owns the terminal, logs go nowhere visible; the ring lets the caller print
// what was missed once the dashboard exits.
type RingHandler struct {
	next     slog.Handler
	minLevel slog.Level
	ring     *ring
	attrs    []slog.Attr
	group    string
}

type ring struct {
	mu     sync.Mutex
	buffer []string
	bufIdx int
	counts map[slog.Level]int
}

// NewRingHandler wraps next. A nil next keeps records only in the ring.
func NewRingHandler(next slog.Handler, minLevel slog.Level) *RingHandler {
	return &RingHandler{
		next:     next,
		minLevel: minLevel,
		ring: &ring{
			buffer: make([]string, MaxBufferedLines),
			counts: make(map[slog.Level]int),
		},
	}
}

// Enabled implements slog.Handler.
func (h *RingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.minLevel {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel {
		h.ring.add(r.Level, h.format(r))
	}
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler. The derived handler shares the ring.
func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *RingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}

func (h *RingHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

// format renders "LEVEL msg k=v ..." with the handler's own attrs first.
func (h *RingHandler) format(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)

	write := func(a slog.Attr) {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		write(a)
		return true
	})

	line := b.String()
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}
	return line
}

func (r *ring) add(level slog.Level, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer[r.bufIdx] = line
	r.bufIdx = (r.bufIdx + 1) % MaxBufferedLines
	r.counts[level]++
}

// RecentLines returns up to n of the most recent records, oldest first.
func (h *RingHandler) RecentLines(n int) []string {
	h.ring.mu.Lock()
	defer h.ring.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)

	// Read from circular buffer in order
	for i := 0; i < n; i++ {
		idx := (h.ring.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.ring.buffer[idx] != "" {
			lines = append(lines, h.ring.buffer[idx])
		}
	}

	return lines
}

// Count returns how many records at level have been kept since creation,
// including those already overwritten in the ring.
func (h *RingHandler) Count(level slog.Level) int {
	h.ring.mu.Lock()
	defer h.ring.mu.Unlock()
	return h.ring.counts[level]
}
