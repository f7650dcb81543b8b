package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-sched-timeline/internal/client"
	"github.com/randomizedcoder/go-sched-timeline/internal/progress"
	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
	"github.com/randomizedcoder/go-sched-timeline/internal/session"
)

// frameInterval paces bar transitions while any bar is moving.
const frameInterval = 50 * time.Millisecond

// =============================================================================
// Messages
// =============================================================================

// SnapshotMsg carries the result of a scheduler run.
type SnapshotMsg struct {
	Snapshot *schedule.Snapshot
	Err      error
}

// FillTickMsg wakes the model to apply every fill that has come due. It is
// ignored unless Generation is still the fill queue's generation.
type FillTickMsg struct {
	Generation uint64
}

// ClearedMsg reports the outcome of clearing the service.
type ClearedMsg struct {
	Err error
}

// FrameMsg advances bar transitions.
type FrameMsg time.Time

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Observer receives render and animation events. metrics.Collector
// implements it.
type Observer interface {
	RecordRender(s *session.Session)
	RecordSuperseded(gen uint64)
	FillFired(lag time.Duration)
	FillsDropped(n int)
}

// Model represents the TUI state.
type Model struct {
	// Configuration
	title        string
	source       client.Source
	clear        func(context.Context) error
	fetchTimeout time.Duration
	observer     Observer
	now          func() time.Time

	// Current state
	sessions     *session.Manager
	current      *session.Session
	fills        *progress.Queue
	bars         map[schedule.PID]*progress.Bar
	colors       map[schedule.PID]lipgloss.Color
	loading      bool
	err          error
	animating    bool
	detailedView bool

	// Display options
	width  int
	height int
	keys   keyMap
	help   help.Model
	bar    bprogress.Model

	// Quit flag
	quitting bool
}

// Config holds TUI configuration.
type Config struct {
	Title    string
	Source   client.Source
	Sessions *session.Manager

	// Clear, when set, is called on the clear key after local state is reset.
	Clear func(context.Context) error

	FetchTimeout time.Duration
	Observer     Observer         // optional
	Now          func() time.Time // optional, for tests
}

// New creates a new TUI model.
func New(cfg Config) Model {
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewManager(session.DefaultOptions())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	title := cfg.Title
	if title == "" {
		title = "sched-timeline"
	}

	return Model{
		title:        title,
		source:       cfg.Source,
		clear:        cfg.Clear,
		fetchTimeout: timeout,
		observer:     cfg.Observer,
		now:          now,
		sessions:     sessions,
		loading:      cfg.Source != nil,
		fills:        progress.NewQueue(),
		bars:         make(map[schedule.PID]*progress.Bar),
		colors:       make(map[schedule.PID]lipgloss.Color),
		width:        80,
		height:       24,
		keys:         defaultKeyMap(),
		help:         help.New(),
		bar:          bprogress.New(bprogress.WithoutPercentage()),
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init starts the first scheduler run when a source is configured.
func (m Model) Init() tea.Cmd {
	if m.source == nil {
		return nil
	}
	return m.fetchCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Details):
			m.detailedView = !m.detailedView
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Rerun):
			if m.source == nil || m.loading {
				return m, nil
			}
			m.loading = true
			m.err = nil
			return m, m.fetchCmd()
		case key.Matches(msg, m.keys.Clear):
			return m.clearSession()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case SnapshotMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		return m.begin(msg.Snapshot)

	case FillTickMsg:
		return m.applyDueFills(msg)

	case FrameMsg:
		if m.anyAnimating() {
			return m, frameCmd()
		}
		m.animating = false
		return m, nil

	case ClearedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.detailedView && m.current != nil {
		return m.renderDetailedView()
	}
	return m.renderSummaryView()
}

// =============================================================================
// State Transitions
// =============================================================================

// begin replaces the on-screen session and queues its fills under a new
// queue generation. Fills of the previous session are pruned unfired.
func (m Model) begin(snap *schedule.Snapshot) (tea.Model, tea.Cmd) {
	hadSession := m.current != nil
	start := m.now()
	s := m.sessions.Begin(snap, start)

	m.current = s
	m.bars = make(map[schedule.PID]*progress.Bar, len(s.Snapshot.Stats))
	m.colors = make(map[schedule.PID]lipgloss.Color)
	for _, p := range s.Snapshot.Stats {
		m.bars[p.PID] = &progress.Bar{}
	}
	for _, b := range s.Timeline.Blocks {
		if _, ok := m.colors[b.PID]; !ok {
			m.colors[b.PID] = b.Color
		}
	}

	if m.observer != nil {
		if hadSession {
			m.observer.RecordSuperseded(s.Generation)
		}
		m.observer.RecordRender(s)
	}

	gen := m.supersedeFills()
	queued := make(map[schedule.PID]bool, len(s.Fills))
	for _, p := range s.Snapshot.Stats {
		if queued[p.PID] {
			continue
		}
		queued[p.PID] = true
		bar := m.bars[p.PID]
		for _, f := range s.Fills[p.PID] {
			f := f
			m.fills.Push(gen, start.Add(f.Delay), func() {
				bar.Set(f.Target, m.now(), f.Transition)
			})
		}
	}
	return m, m.nextFillTick(gen, start)
}

// supersedeFills starts a new fill generation and drops every fill still
// queued under the old one.
func (m Model) supersedeFills() uint64 {
	gen := m.fills.Advance()
	if n := m.fills.Prune(); n > 0 && m.observer != nil {
		m.observer.FillsDropped(n)
	}
	return gen
}

func (m Model) clearSession() (tea.Model, tea.Cmd) {
	gen := m.sessions.Clear()
	m.supersedeFills()
	m.current = nil
	m.bars = make(map[schedule.PID]*progress.Bar)
	m.colors = make(map[schedule.PID]lipgloss.Color)
	m.err = nil
	if m.observer != nil {
		m.observer.RecordSuperseded(gen)
	}
	if m.clear == nil {
		return m, nil
	}
	return m, m.clearCmd()
}

// applyDueFills fires every due fill in queue order, then arms one tick for
// the next pending fill. A tick from a superseded generation does nothing
// and is not re-armed.
func (m Model) applyDueFills(msg FillTickMsg) (tea.Model, tea.Cmd) {
	if msg.Generation != m.fills.Generation() {
		return m, nil
	}

	now := m.now()
	due := m.fills.PopDue(now)
	for _, e := range due {
		e.Action()
		if m.observer != nil {
			m.observer.FillFired(now.Sub(e.At))
		}
	}

	next := m.nextFillTick(msg.Generation, now)
	if len(due) == 0 || m.animating {
		return m, next
	}
	m.animating = true
	if next == nil {
		return m, frameCmd()
	}
	return m, tea.Batch(frameCmd(), next)
}

// nextFillTick returns a tick for the earliest queued fill, or nil when the
// queue is empty.
func (m Model) nextFillTick(gen uint64, now time.Time) tea.Cmd {
	at, ok := m.fills.NextAt()
	if !ok {
		return nil
	}
	return fillTickCmd(gen, at.Sub(now))
}

func (m Model) anyAnimating() bool {
	now := m.now()
	for _, b := range m.bars {
		if b.Animating(now) {
			return true
		}
	}
	return false
}

// =============================================================================
// Commands
// =============================================================================

func (m Model) fetchCmd() tea.Cmd {
	src := m.source
	timeout := m.fetchTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := src.Fetch(ctx)
		return SnapshotMsg{Snapshot: snap, Err: err}
	}
}

func (m Model) clearCmd() tea.Cmd {
	clearFn := m.clear
	timeout := m.fetchTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ClearedMsg{Err: clearFn(ctx)}
	}
}

func fillTickCmd(gen uint64, d time.Duration) tea.Cmd {
	if d < 0 {
		d = 0
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return FillTickMsg{Generation: gen}
	})
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Session returns the session on screen, or nil.
func (m Model) Session() *session.Session {
	return m.current
}

// Progress returns the displayed percent for pid.
func (m Model) Progress(pid schedule.PID) float64 {
	b, ok := m.bars[pid]
	if !ok {
		return 0
	}
	return b.Value(m.now())
}

// Err returns the last fetch or clear error.
func (m Model) Err() error {
	return m.err
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}
