package sched_test

import (
	"testing"

	"github.com/dantte-lp/steerd/internal/sched"
)

func TestWheelFiresInDeadlineOrder(t *testing.T) {
	t.Parallel()

	w := sched.NewWheel()
	var order []string

	var a, b, c sched.Timer
	w.Set(&c, 0, 300, func() { order = append(order, "c") })
	w.Set(&a, 0, 100, func() { order = append(order, "a") })
	w.Set(&b, 0, 200, func() { order = append(order, "b") })

	fired := w.Poll(1000)
	if fired != 3 {
		t.Fatalf("fired = %d, want 3", fired)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v, want [a b c]", order)
	}
}

func TestWheelPollOnlyFiresDue(t *testing.T) {
	t.Parallel()

	w := sched.NewWheel()
	var fired int
	var tm sched.Timer
	w.Set(&tm, 0, 500, func() { fired++ })

	if n := w.Poll(400); n != 0 {
		t.Fatalf("Poll(400) fired %d, want 0", n)
	}
	if n := w.Poll(500); n != 1 {
		t.Fatalf("Poll(500) fired %d, want 1", n)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestWheelCancel(t *testing.T) {
	t.Parallel()

	w := sched.NewWheel()
	var fired bool
	var tm sched.Timer
	w.Set(&tm, 0, 100, func() { fired = true })
	w.Cancel(&tm)

	if w.Poll(1000); fired {
		t.Fatalf("canceled timer fired")
	}
	if tm.Armed() {
		t.Fatalf("timer still armed after cancel")
	}
}

func TestWheelReArm(t *testing.T) {
	t.Parallel()

	w := sched.NewWheel()
	var count int
	var tm sched.Timer
	w.Set(&tm, 0, 100, func() { count++ })
	w.Set(&tm, 0, 200, func() { count++ }) // re-arm before first fire

	if n := w.Poll(150); n != 0 {
		t.Fatalf("Poll(150) fired %d, want 0 (re-armed to 200)", n)
	}
	if n := w.Poll(200); n != 1 {
		t.Fatalf("Poll(200) fired %d, want 1", n)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestWheelCallbackCanReArmItself(t *testing.T) {
	t.Parallel()

	w := sched.NewWheel()
	var tm sched.Timer
	var fireCount int
	var cb func()
	cb = func() {
		fireCount++
		if fireCount < 3 {
			w.Set(&tm, int64(fireCount)*100, 100, cb)
		}
	}
	w.Set(&tm, 0, 100, cb)

	w.Poll(1000)
	if fireCount != 3 {
		t.Fatalf("fireCount = %d, want 3", fireCount)
	}
}

func TestWheelNextDeadline(t *testing.T) {
	t.Parallel()

	w := sched.NewWheel()
	if _, ok := w.NextDeadline(); ok {
		t.Fatalf("NextDeadline on empty wheel returned ok=true")
	}

	var tm sched.Timer
	w.Set(&tm, 10, 50, func() {})
	d, ok := w.NextDeadline()
	if !ok || d != 60 {
		t.Fatalf("NextDeadline = (%d, %v), want (60, true)", d, ok)
	}
}
