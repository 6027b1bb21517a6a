// Package sched implements a single priority queue of millisecond deadlines,
// each carrying an owner-supplied callback, driven by one monotonic clock
// value supplied by the caller on every poll.
//
// There is deliberately no background goroutine or wall-clock sampling here:
// the owning event loop samples its own clock once per iteration and calls
// Wheel.Poll with that value, so every timer fired during one iteration sees
// the same "now".
package sched
