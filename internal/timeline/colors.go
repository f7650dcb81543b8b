// Package timeline turns a list of dispatch events into proportionally scaled,
// colour-coded blocks ready for a presentation layer to draw.
package timeline

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
)

// DefaultPalette is the ordered process palette. It wraps around once more
// distinct processes than colours appear.
var DefaultPalette = []lipgloss.Color{
	"#4caf50", // Green
	"#2196f3", // Blue
	"#ff9800", // Orange
	"#e91e63", // Pink
	"#9c27b0", // Purple
	"#00bcd4", // Cyan
	"#8bc34a", // Light green
}

// DefaultIdleColor is the neutral colour reserved for idle time.
const DefaultIdleColor = lipgloss.Color("#555555")

// ColorAllocator binds process IDs to palette colours in first-seen order.
// It is scoped to one render pass and is not safe for concurrent use.
type ColorAllocator struct {
	palette []lipgloss.Color
	idle    lipgloss.Color
	byPID   map[schedule.PID]lipgloss.Color
	next    int
}

// NewColorAllocator creates an allocator. An empty palette falls back to
// DefaultPalette.
func NewColorAllocator(palette []lipgloss.Color, idle lipgloss.Color) *ColorAllocator {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &ColorAllocator{
		palette: palette,
		idle:    idle,
		byPID:   make(map[schedule.PID]lipgloss.Color),
	}
}

// ColorFor returns the colour bound to pid, allocating the next palette entry
// on first reference. Idle never consumes a palette slot.
func (a *ColorAllocator) ColorFor(pid schedule.PID) lipgloss.Color {
	if pid.IsIdle() {
		return a.idle
	}
	if c, ok := a.byPID[pid]; ok {
		return c
	}
	c := a.palette[a.next%len(a.palette)]
	a.next++
	a.byPID[pid] = c
	return c
}

// IdleColor returns the neutral idle colour.
func (a *ColorAllocator) IdleColor() lipgloss.Color {
	return a.idle
}

// Len returns the number of distinct processes bound so far.
func (a *ColorAllocator) Len() int {
	return len(a.byPID)
}

// Reset forgets every binding.
func (a *ColorAllocator) Reset() {
	a.byPID = make(map[schedule.PID]lipgloss.Color)
	a.next = 0
}
