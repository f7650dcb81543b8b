package progress

import (
	"container/heap"
	"time"
)

// Entry is one deferred action on the queue.
type Entry struct {
	At         time.Time
	Generation uint64
	Action     func()

	seq uint64
}

// Queue is a single-threaded timer queue. Entries fire in At order, ties in
// insertion order. Advance starts a new generation; entries from any older
// generation are dropped when they come due instead of being returned.
//
// Queue is not safe for concurrent use; Loop owns one on its goroutine.
type Queue struct {
	entries entryHeap
	seq     uint64
	gen     uint64
	dropped uint64
}

// NewQueue returns an empty queue at generation 0.
func NewQueue() *Queue {
	return &Queue{}
}

// Generation returns the current generation token.
func (q *Queue) Generation() uint64 {
	return q.gen
}

// Advance invalidates every pending entry and returns the new token.
func (q *Queue) Advance() uint64 {
	q.gen++
	return q.gen
}

// Push adds an entry. Entries for a stale generation are rejected.
func (q *Queue) Push(gen uint64, at time.Time, action func()) bool {
	if gen != q.gen {
		q.dropped++
		return false
	}
	q.seq++
	heap.Push(&q.entries, &Entry{At: at, Generation: gen, Action: action, seq: q.seq})
	return true
}

// NextAt returns the earliest fire time, if any entry is pending.
func (q *Queue) NextAt() (time.Time, bool) {
	if len(q.entries) == 0 {
		return time.Time{}, false
	}
	return q.entries[0].At, true
}

// PopDue removes every entry due at or before now and returns the current
// generation's entries in firing order.
func (q *Queue) PopDue(now time.Time) []*Entry {
	var due []*Entry
	for len(q.entries) > 0 && !q.entries[0].At.After(now) {
		e := heap.Pop(&q.entries).(*Entry)
		if e.Generation != q.gen {
			q.dropped++
			continue
		}
		due = append(due, e)
	}
	return due
}

// Prune discards every stale entry now instead of when it comes due, and
// returns how many were discarded.
func (q *Queue) Prune() int {
	kept := q.entries[:0]
	n := 0
	for _, e := range q.entries {
		if e.Generation != q.gen {
			n++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = nil
	}
	q.entries = kept
	heap.Init(&q.entries)
	q.dropped += uint64(n)
	return n
}

// Len returns the number of pending entries, stale ones included.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Dropped returns the number of stale entries discarded so far.
func (q *Queue) Dropped() uint64 {
	return q.dropped
}

type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].At.Equal(h[j].At) {
		return h[i].seq < h[j].seq
	}
	return h[i].At.Before(h[j].At)
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*Entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
