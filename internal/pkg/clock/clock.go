// Package clock abstracts the timer substrate used by the watch core.
// The stream client schedules its retry timer through a Clock handle
// rather than the time package directly, so tests can fire timers
// deterministically.
package clock

import "time"

// Timer is a one-shot timer armed through a Clock.
type Timer interface {
	// Stop cancels the timer. It reports whether the timer was stopped
	// before its callback started running; when it returns false, the
	// callback has fired or is in flight.
	Stop() bool
}

// Clock supplies the current time and one-shot timers.
type Clock interface {
	Now() time.Time

	// AfterFunc arms a timer that invokes f on its own goroutine after
	// d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

type realTimer struct {
	t *time.Timer
}

func (rt realTimer) Stop() bool {
	return rt.t.Stop()
}
