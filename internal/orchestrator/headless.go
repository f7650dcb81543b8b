package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/go-sched-timeline/internal/progress"
	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
	"github.com/randomizedcoder/go-sched-timeline/internal/session"
	"github.com/randomizedcoder/go-sched-timeline/internal/tui"
)

// headlessWidth is the timeline width in columns when no terminal is attached.
const headlessWidth = 100

// runHeadless renders one session to the output writer: the timeline, one
// line per fill as it fires, then the averages.
func (o *Orchestrator) runHeadless(ctx context.Context) error {
	snap, err := o.fetch(ctx)
	if err != nil {
		return err
	}

	sess := o.sessions.Begin(snap, time.Now())
	o.metrics.RecordRender(sess)
	o.logger.Info("render_started",
		"session", sess.ID,
		"generation", sess.Generation,
		"processes", len(snap.Stats),
		"blocks", len(sess.Timeline.Blocks),
		"fills", sess.FillCount(),
	)

	fmt.Fprintln(o.out, "Gantt Chart")
	fmt.Fprintln(o.out, tui.RenderTimeline(sess.Timeline, headlessWidth))
	fmt.Fprintln(o.out)

	if err := o.animate(ctx, sess); err != nil {
		return err
	}

	if !sess.Averages.Empty {
		fmt.Fprintln(o.out)
		fmt.Fprintln(o.out, "Average Metrics")
		for _, r := range sess.Averages.Rows() {
			fmt.Fprintf(o.out, "  %-24s %s\n", r.Label+":", r.Value)
		}
	}
	return nil
}

// animate plays the session's fills through a progress loop and prints each
// one as it fires. It returns early, without error, when ctx ends.
func (o *Orchestrator) animate(ctx context.Context, sess *session.Session) error {
	total := sess.FillCount()
	if total == 0 {
		return nil
	}

	loop := progress.NewLoop(progress.LoopConfig{
		Logger:   o.logger,
		Observer: o.metrics,
	})
	loopCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-loop.Done()
	}()
	go loop.Run(loopCtx)

	gen, ok := loop.Supersede(ctx)
	if !ok {
		return nil
	}

	// onUpdate runs on the loop goroutine only.
	var fired atomic.Int64
	finished := make(chan struct{})
	onUpdate := func(u progress.Update) {
		fmt.Fprintf(o.out, "  %-6s %6.2f%%  (+%.2f%%)\n", "P"+string(u.Fill.PID), u.Fill.Target, u.Fill.Increment)
		if fired.Add(1) == int64(total) {
			close(finished)
		}
	}

	start := time.Now()
	seen := make(map[schedule.PID]bool, len(sess.Fills))
	for _, p := range sess.Snapshot.Stats {
		if seen[p.PID] {
			continue
		}
		seen[p.PID] = true
		if !loop.Schedule(ctx, gen, start, sess.Fills[p.PID], onUpdate) {
			return nil
		}
	}

	select {
	case <-finished:
		o.logger.Info("render_complete", "session", sess.ID, "fills", total, "elapsed", time.Since(start))
	case <-ctx.Done():
		o.logger.Info("render_interrupted", "session", sess.ID, "fired", fired.Load())
	}
	return nil
}
