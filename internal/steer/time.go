package steer

// Time is a monotonic millisecond timestamp. The engine samples a single
// Time value once per top-level tick and threads it through every decision
// made during that tick, per the "one current_time per iteration" rule.
type Time int64

// Before reports whether t occurs strictly before other.
func (t Time) Before(other Time) bool { return t < other }

// Add returns t advanced by deltaMs milliseconds.
func (t Time) Add(deltaMs int64) Time { return t + Time(deltaMs) }

// Sub returns the number of milliseconds between t and other (t - other).
func (t Time) Sub(other Time) int64 { return int64(t - other) }
