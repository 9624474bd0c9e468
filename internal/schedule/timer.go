// Package schedule holds the timing primitives of the station loop: a wrapping
// millisecond clock and per-task interval timers.
package schedule

import "time"

// Clock returns a monotonic millisecond counter that wraps at 2^32.
type Clock interface {
	Millis() uint32
}

type systemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock counting milliseconds since its creation.
func NewSystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Ready reports whether interval milliseconds have elapsed since last.
// The subtraction is done in uint32 so the result stays correct when now has
// wrapped past zero and last has not.
func Ready(now, last, interval uint32) bool {
	return now-last >= interval
}

// Millis converts d to a timer interval, saturating at the uint32 range.
func Millis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > int64(^uint32(0)):
		return ^uint32(0)
	}
	return uint32(ms)
}

// Timer is the state of one periodic task. A zero-valued Timer with an
// interval fires on its first check.
type Timer struct {
	last     uint32
	interval uint32
	fired    bool
}

func NewTimer(interval time.Duration) *Timer {
	return &Timer{interval: Millis(interval)}
}

// Ready reports whether the task is due at now.
func (t *Timer) Ready(now uint32) bool {
	return !t.fired || Ready(now, t.last, t.interval)
}

// Fire records now as the last firing. Callers pass the timestamp sampled
// before running the task body.
func (t *Timer) Fire(now uint32) {
	t.last = now
	t.fired = true
}

// Last returns the last firing time and whether the timer has fired at all.
func (t *Timer) Last() (uint32, bool) { return t.last, t.fired }

func (t *Timer) Interval() uint32 { return t.interval }
