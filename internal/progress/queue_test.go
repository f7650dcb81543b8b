package progress

import (
	"testing"
	"time"
)

func TestQueue_FiresInTimeOrder(t *testing.T) {
	q := NewQueue()
	base := time.Unix(0, 0)
	var fired []int

	q.Push(0, base.Add(30*time.Millisecond), func() { fired = append(fired, 3) })
	q.Push(0, base.Add(10*time.Millisecond), func() { fired = append(fired, 1) })
	q.Push(0, base.Add(20*time.Millisecond), func() { fired = append(fired, 2) })

	for _, e := range q.PopDue(base.Add(time.Second)) {
		e.Action()
	}

	want := []int{1, 2, 3}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("fired = %v, want %v", fired, want)
			break
		}
	}
}

func TestQueue_TiesKeepInsertionOrder(t *testing.T) {
	q := NewQueue()
	at := time.Unix(10, 0)
	var fired []string

	for _, s := range []string{"a", "b", "c", "d"} {
		s := s
		q.Push(0, at, func() { fired = append(fired, s) })
	}
	for _, e := range q.PopDue(at) {
		e.Action()
	}

	if got := fired[0] + fired[1] + fired[2] + fired[3]; got != "abcd" {
		t.Errorf("fired order = %q, want abcd", got)
	}
}

func TestQueue_PopDueOnlyReturnsDue(t *testing.T) {
	q := NewQueue()
	base := time.Unix(0, 0)
	q.Push(0, base.Add(time.Second), func() {})
	q.Push(0, base.Add(3*time.Second), func() {})

	if got := len(q.PopDue(base.Add(2 * time.Second))); got != 1 {
		t.Errorf("PopDue at 2s returned %d entries, want 1", got)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
	at, ok := q.NextAt()
	if !ok || !at.Equal(base.Add(3*time.Second)) {
		t.Errorf("NextAt() = %v, %v; want 3s, true", at, ok)
	}
}

func TestQueue_AdvanceDropsStaleEntries(t *testing.T) {
	q := NewQueue()
	base := time.Unix(0, 0)
	staleFired := false

	gen := q.Generation()
	q.Push(gen, base.Add(time.Second), func() { staleFired = true })
	q.Push(gen, base.Add(2*time.Second), func() { staleFired = true })

	next := q.Advance()
	if next == gen {
		t.Fatal("Advance() did not change the generation")
	}
	freshFired := false
	q.Push(next, base.Add(time.Second), func() { freshFired = true })

	for _, e := range q.PopDue(base.Add(5 * time.Second)) {
		e.Action()
	}

	if staleFired {
		t.Error("stale entry fired after Advance")
	}
	if !freshFired {
		t.Error("current-generation entry did not fire")
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", q.Dropped())
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_PushRejectsStaleGeneration(t *testing.T) {
	q := NewQueue()
	old := q.Generation()
	q.Advance()

	if q.Push(old, time.Unix(0, 0), func() {}) {
		t.Error("Push with stale generation was accepted")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", q.Dropped())
	}
}

func TestQueue_Empty(t *testing.T) {
	q := NewQueue()
	if _, ok := q.NextAt(); ok {
		t.Error("NextAt() on empty queue returned ok")
	}
	if due := q.PopDue(time.Now()); len(due) != 0 {
		t.Errorf("PopDue() on empty queue = %d entries", len(due))
	}
}

func TestQueue_Prune(t *testing.T) {
	q := NewQueue()
	base := time.Unix(0, 0)
	var fired []int

	q.Push(0, base.Add(30*time.Millisecond), func() { t.Error("stale entry fired") })
	q.Push(0, base.Add(10*time.Millisecond), func() { t.Error("stale entry fired") })
	gen := q.Advance()
	q.Push(gen, base.Add(20*time.Millisecond), func() { fired = append(fired, 2) })
	q.Push(gen, base.Add(5*time.Millisecond), func() { fired = append(fired, 1) })

	if n := q.Prune(); n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", q.Dropped())
	}
	if at, _ := q.NextAt(); !at.Equal(base.Add(5 * time.Millisecond)) {
		t.Errorf("NextAt() = %v, want the earliest live entry", at)
	}

	for _, e := range q.PopDue(base.Add(time.Second)) {
		e.Action()
	}
	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Errorf("fired = %v, want [1 2]", fired)
	}
	if n := q.Prune(); n != 0 {
		t.Errorf("second Prune() = %d, want 0", n)
	}
}
