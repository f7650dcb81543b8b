// Package progress paces per-process completion bars from execution segments.
//
// Plan turns one process into a list of fills, each due at a fixed offset
// from the start of the animation. Queue and Loop fire those fills on a
// single goroutine and drop every fill that belongs to a superseded
// generation, so a new run or a clear can never be corrupted by stale updates.
package progress

import (
	"math"
	"sort"
	"time"

	"github.com/randomizedcoder/go-sched-timeline/internal/schedule"
)

// DefaultTimeUnit is the wall-clock time per simulation time unit.
const DefaultTimeUnit = 200 * time.Millisecond

// Fill is one scheduled bar update.
type Fill struct {
	PID     schedule.PID
	Segment int // index into the sorted segment list

	// Delay is measured from the start of the animation, not from the
	// previous fill.
	Delay time.Duration

	// Transition is how long the bar takes to grow to Target.
	Transition time.Duration

	// Increment is this segment's share of the burst, in percent.
	Increment float64

	// Target is the cumulative fill after this segment, clamped to 100.
	Target float64
}

// Plan computes the fills for one process. Segments with a non-positive
// duration are skipped, and a non-positive burst yields no fills.
// Fills are ordered by segment start.
func Plan(p schedule.ProcessResult, timeUnit time.Duration) []Fill {
	if p.Burst <= 0 || len(p.Executions) == 0 {
		return nil
	}

	segs := make([]schedule.ExecutionSegment, len(p.Executions))
	copy(segs, p.Executions)
	sort.SliceStable(segs, func(i, j int) bool {
		return segs[i].Start < segs[j].Start
	})

	fills := make([]Fill, 0, len(segs))
	var filled float64
	for i, seg := range segs {
		if seg.Duration <= 0 {
			continue
		}
		inc := seg.Duration / p.Burst * 100
		filled += inc

		fills = append(fills, Fill{
			PID:        p.PID,
			Segment:    i,
			Delay:      scaleUnits(seg.Start, timeUnit),
			Transition: scaleUnits(seg.Duration, timeUnit),
			Increment:  inc,
			Target:     math.Min(filled, 100),
		})
	}
	return fills
}

// PlanAll plans every process in stats, keyed by PID.
func PlanAll(stats []schedule.ProcessResult, timeUnit time.Duration) map[schedule.PID][]Fill {
	out := make(map[schedule.PID][]Fill, len(stats))
	for _, p := range stats {
		out[p.PID] = Plan(p, timeUnit)
	}
	return out
}

func scaleUnits(units float64, timeUnit time.Duration) time.Duration {
	if units <= 0 {
		return 0
	}
	return time.Duration(units * float64(timeUnit))
}
