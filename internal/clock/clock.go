// Package clock provides the monotonic time source shared by the pipeline
// and actuator threads.
package clock

import "time"

// epoch anchors NowUs's monotonic reading. time.Since retains the monotonic
// clock reading carried by time.Now, whereas UnixMicro/Unix/UnixNano strip
// it — subtracting two NowUs values must stay immune to wall-clock steps
// (NTP sync, manual adjustment), per spec's monotonic-clock requirement.
var epoch = time.Now()

// NowUs returns a monotonic microsecond timestamp. Not wall-clock/epoch —
// only differences between calls are meaningful.
func NowUs() int64 {
	return time.Since(epoch).Microseconds()
}

// LapTimer measures elapsed microseconds since the last lap, advancing its
// reference point each time Lap is called.
type LapTimer struct {
	ref     int64
	lastLap int64
}

// Start resets the reference point to now and returns it.
func (l *LapTimer) Start() int64 {
	l.ref = NowUs()
	l.lastLap = 0
	return l.ref
}

// Lap returns the microseconds elapsed since the reference point (or the
// previous Lap call) and advances the reference point by that amount.
func (l *LapTimer) Lap() int64 {
	now := NowUs()
	delta := now - l.ref
	l.ref += delta
	l.lastLap = delta
	return delta
}

// LastLap returns the most recently computed lap duration without
// recomputing it.
func (l *LapTimer) LastLap() int64 {
	return l.lastLap
}
