package progress

import "time"

// Bar is the visual state of one process's completion bar. A new target
// starts a linear transition from wherever the bar currently is.
type Bar struct {
	from       float64
	target     float64
	start      time.Time
	transition time.Duration
}

// Set starts a transition towards target percent. Targets lower than the
// current value are ignored so the bar never shrinks.
func (b *Bar) Set(target float64, now time.Time, transition time.Duration) {
	current := b.Value(now)
	if target < current {
		target = current
	}
	b.from = current
	b.target = target
	b.start = now
	b.transition = transition
}

// Value returns the displayed percent at now.
func (b *Bar) Value(now time.Time) float64 {
	if b.transition <= 0 {
		return b.target
	}
	elapsed := now.Sub(b.start)
	if elapsed >= b.transition {
		return b.target
	}
	if elapsed <= 0 {
		return b.from
	}
	frac := float64(elapsed) / float64(b.transition)
	return b.from + (b.target-b.from)*frac
}

// Target returns the percent the bar is heading to.
func (b *Bar) Target() float64 {
	return b.target
}

// Animating reports whether a transition is still in progress at now.
func (b *Bar) Animating(now time.Time) bool {
	return b.transition > 0 && now.Sub(b.start) < b.transition
}
