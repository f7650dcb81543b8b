// Package session holds the render session: the snapshot currently on screen,
// everything derived from it, and the generation token that invalidates
// deferred work from earlier sessions.
package session

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/randomizedcoder/go-sched-timeline/internal/progress"
	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
	"github.com/randomizedcoder/go-sched-timeline/internal/summary"
	"github.com/randomizedcoder/go-sched-timeline/internal/timeline"
)

// Options are the rendering constants applied to every session.
type Options struct {
	Timeline timeline.Options
	TimeUnit time.Duration
}

// DefaultOptions returns the standard viewport, palette and time unit.
func DefaultOptions() Options {
	return Options{
		Timeline: timeline.DefaultOptions(),
		TimeUnit: progress.DefaultTimeUnit,
	}
}

// Session is one rendering pass. It is immutable after Begin returns it.
type Session struct {
	ID         string
	Generation uint64
	Started    time.Time

	Snapshot *schedule.Snapshot
	Timeline timeline.Timeline
	Fills    map[schedule.PID][]progress.Fill
	Averages summary.DisplayRecord
}

// FillCount returns the total number of scheduled fills.
func (s *Session) FillCount() int {
	n := 0
	for _, f := range s.Fills {
		n += len(f)
	}
	return n
}

// Manager issues sessions. Each Begin or Clear advances the generation, so
// any holder of an older token can tell its work is stale.
type Manager struct {
	opts Options

	mu      sync.Mutex
	gen     uint64
	current *Session
}

// NewManager creates a manager with the given rendering options.
func NewManager(opts Options) *Manager {
	if opts.TimeUnit <= 0 {
		opts.TimeUnit = progress.DefaultTimeUnit
	}
	if opts.Timeline.ViewportWidth <= 0 {
		opts.Timeline.ViewportWidth = timeline.DefaultViewportWidth
	}
	return &Manager{opts: opts}
}

// Options returns the rendering options.
func (m *Manager) Options() Options {
	return m.opts
}

// Begin replaces the current session with one built from snap. A nil
// snapshot behaves like an empty one.
func (m *Manager) Begin(snap *schedule.Snapshot, now time.Time) *Session {
	if snap == nil {
		snap = &schedule.Snapshot{}
	}

	s := &Session{
		ID:       newSessionID(now),
		Started:  now,
		Snapshot: snap,
		Timeline: timeline.Build(snap.Events, m.opts.Timeline),
		Fills:    progress.PlanAll(snap.Stats, m.opts.TimeUnit),
		Averages: summary.Format(snap.AverageMetrics),
	}

	m.mu.Lock()
	m.gen++
	s.Generation = m.gen
	m.current = s
	m.mu.Unlock()

	return s
}

// Clear drops the current session and returns the new generation.
func (m *Manager) Clear() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.current = nil
	return m.gen
}

// Current returns the active session, or nil after Clear.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Generation returns the current generation token.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// IsCurrent reports whether gen is still the live generation.
func (m *Manager) IsCurrent(gen uint64) bool {
	return m.Generation() == gen
}

func newSessionID(now time.Time) string {
	e := ulid.Monotonic(rand.Reader, 0)
	return "render_" + ulid.MustNew(ulid.Timestamp(now), e).String()
}
