package sched

import "container/heap"

// Timer is a single armed deadline. The zero value is an unarmed timer ready
// to be passed to Wheel.Set. A Timer must not be copied after its first use.
type Timer struct {
	deadline int64
	seq      uint64
	index    int
	armed    bool
	fn       func()
}

// Armed reports whether the timer currently holds a pending deadline.
func (t *Timer) Armed() bool {
	return t.armed
}

// Deadline returns the timer's current deadline in milliseconds. Only
// meaningful while Armed.
func (t *Timer) Deadline() int64 {
	return t.deadline
}

// Wheel is a min-heap of armed Timers ordered by deadline, with ties broken
// by arming order (FIFO among equal deadlines).
type Wheel struct {
	h   timerHeap
	seq uint64
}

// NewWheel returns an empty Wheel.
func NewWheel() *Wheel {
	return &Wheel{}
}

// Set arms t to fire fn when Poll is next called with now+delayMs or later.
// If t is already armed, it is re-armed at the new deadline (re-arm is always
// allowed, per C2's contract). delayMs <= 0 fires on the next Poll.
func (w *Wheel) Set(t *Timer, now, delayMs int64, fn func()) {
	if t.armed {
		w.remove(t)
	}

	t.deadline = now + delayMs
	t.fn = fn
	t.seq = w.seq
	w.seq++
	t.armed = true
	heap.Push(&w.h, t)
}

// Cancel disarms t. It is a no-op if t is not currently armed.
func (w *Wheel) Cancel(t *Timer) {
	if !t.armed {
		return
	}
	w.remove(t)
}

// remove extracts t from the heap and marks it unarmed. t must be armed.
func (w *Wheel) remove(t *Timer) {
	heap.Remove(&w.h, t.index)
	t.armed = false
	t.fn = nil
}

// Poll fires, in deadline order, every timer whose deadline is <= now, and
// returns how many fired. Firing disarms the timer before invoking its
// callback, so a callback may safely re-arm its own timer.
func (w *Wheel) Poll(now int64) int {
	fired := 0
	for w.h.Len() > 0 && w.h[0].deadline <= now {
		t := heap.Pop(&w.h).(*Timer) //nolint:errcheck
		t.armed = false
		fn := t.fn
		t.fn = nil
		if fn != nil {
			fn()
		}
		fired++
	}
	return fired
}

// Len returns the number of currently armed timers.
func (w *Wheel) Len() int {
	return w.h.Len()
}

// NextDeadline returns the earliest armed deadline and true, or (0, false)
// if no timer is armed. Callers use this to size a poll/sleep interval.
func (w *Wheel) NextDeadline() (int64, bool) {
	if w.h.Len() == 0 {
		return 0, false
	}
	return w.h[0].deadline, true
}

// timerHeap implements container/heap.Interface over *Timer, ordered by
// (deadline, seq) so Poll's firing order is deterministic.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer) //nolint:errcheck
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
