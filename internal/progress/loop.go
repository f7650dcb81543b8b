package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
)

// Update is delivered to the caller when a fill fires.
type Update struct {
	Generation uint64
	Fill       Fill
	Scheduled  time.Time
	Fired      time.Time
}

// Lag returns how late the fill fired.
func (u Update) Lag() time.Duration {
	return u.Fired.Sub(u.Scheduled)
}

// Observer receives firing statistics. metrics.Collector implements it.
type Observer interface {
	FillFired(lag time.Duration)
	FillsDropped(n int)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Loop runs deferred fills on one goroutine. Every callback passed to
// Schedule runs on that goroutine, so callers need no locking for state
// touched only from callbacks.
type Loop struct {
	queue    *Queue
	cmds     chan func()
	clock    Clock
	logger   *slog.Logger
	observer Observer
	done     chan struct{}
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	Logger   *slog.Logger
	Observer Observer // optional
	Clock    Clock    // optional, defaults to wall clock
}

// NewLoop creates a loop. Call Run to start it.
func NewLoop(cfg LoopConfig) *Loop {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:    NewQueue(),
		cmds:     make(chan func(), 16),
		clock:    clock,
		logger:   logger,
		observer: cfg.Observer,
		done:     make(chan struct{}),
	}
}

// Run processes commands and fires due fills until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var timerC <-chan time.Time
		if at, ok := l.queue.NextAt(); ok {
			d := at.Sub(l.clock.Now())
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-l.cmds:
			cmd()
		case <-timerC:
			l.fireDue()
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) fireDue() {
	before := l.queue.Dropped()
	now := l.clock.Now()
	for _, e := range l.queue.PopDue(now) {
		if l.observer != nil {
			l.observer.FillFired(now.Sub(e.At))
		}
		e.Action()
	}
	if dropped := int(l.queue.Dropped() - before); dropped > 0 {
		l.logger.Debug("fills_dropped_stale", "count", dropped, "generation", l.queue.Generation())
		if l.observer != nil {
			l.observer.FillsDropped(dropped)
		}
	}
}

// do runs fn on the loop goroutine and returns its result. ok is false if
// ctx ends or the loop stops first. The result travels over a buffered
// channel, so an abandoned call never shares memory with the loop.
func do[T any](ctx context.Context, l *Loop, fn func() T) (result T, ok bool) {
	res := make(chan T, 1)
	select {
	case l.cmds <- func() { res <- fn() }:
	case <-ctx.Done():
		return result, false
	case <-l.done:
		return result, false
	}
	select {
	case result = <-res:
		return result, true
	case <-ctx.Done():
		return result, false
	case <-l.done:
		return result, false
	}
}

// Supersede starts a new generation and returns its token. Every fill
// scheduled under an earlier token is dropped instead of firing.
func (l *Loop) Supersede(ctx context.Context) (uint64, bool) {
	gen, ok := do(ctx, l, l.queue.Advance)
	if ok {
		l.logger.Debug("generation_advanced", "generation", gen)
	}
	return gen, ok
}

// Schedule queues fills relative to start. onUpdate runs on the loop
// goroutine. It returns false when gen is not the current generation,
// even if fills is empty, or when ctx ends first.
func (l *Loop) Schedule(ctx context.Context, gen uint64, start time.Time, fills []Fill, onUpdate func(Update)) bool {
	accepted, ok := do(ctx, l, func() bool {
		if gen != l.queue.Generation() {
			return false
		}
		for _, f := range fills {
			f := f
			at := start.Add(f.Delay)
			pushed := l.queue.Push(gen, at, func() {
				onUpdate(Update{
					Generation: gen,
					Fill:       f,
					Scheduled:  at,
					Fired:      l.clock.Now(),
				})
			})
			if !pushed {
				return false
			}
		}
		return true
	})
	return ok && accepted
}

// Animate plans and schedules every process in stats under gen.
func (l *Loop) Animate(ctx context.Context, gen uint64, stats []schedule.ProcessResult, timeUnit time.Duration, onUpdate func(Update)) bool {
	start := l.clock.Now()
	for _, p := range stats {
		if !l.Schedule(ctx, gen, start, Plan(p, timeUnit), onUpdate) {
			return false
		}
	}
	return true
}

// Pending returns the number of queued entries, stale ones included.
func (l *Loop) Pending(ctx context.Context) int {
	n, _ := do(ctx, l, l.queue.Len)
	return n
}
