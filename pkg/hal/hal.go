// Package hal defines the hardware capabilities the ranger driver consumes
// and provides implementations that work on both TinyGo and hosted Go.
package hal

import "time"

// DigitalOutput drives a single output line.
type DigitalOutput interface {
	Write(level bool)
}

// EdgeInput is an interrupt capable input line. Handlers are invoked from
// interrupt context and must not block.
type EdgeInput interface {
	OnRise(fn func())
	OnFall(fn func())
	Read() bool
}

// Timer is a free-running microsecond counter.
type Timer interface {
	Start()
	Stop()
	Reset()
	ElapsedMicros() uint32
}

// Callback schedules a single pending function. Scheduling again replaces
// whatever was pending.
type Callback interface {
	ScheduleOnce(d time.Duration, fn func())
	ScheduleRepeating(d time.Duration, fn func())
	Cancel()
}

// DelayFunc blocks the caller for d without yielding.
type DelayFunc func(d time.Duration)

// Noop is the inert handler installed on detached edges.
func Noop() {}

// BusyWait spins until d has elapsed.
func BusyWait(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}
