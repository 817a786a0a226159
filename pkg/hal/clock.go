package hal

import (
	"sync"
	"time"

	"github.com/fatih/stopwatch"
)

// Stopwatch is a Timer backed by the runtime clock. Start resumes counting
// and Stop pauses it; Reset zeroes the count without changing whether it
// runs.
type Stopwatch struct {
	mu      sync.Mutex
	lag     func() time.Duration
	running bool
	watch   *stopwatch.Stopwatch
	paused  time.Duration
}

var _ Timer = (*Stopwatch)(nil)

func NewStopwatch() *Stopwatch {
	return &Stopwatch{lag: noLag}
}

// NewEdgeStopwatch returns a Stopwatch driven from handlers dispatched by
// q. Starts and readings are backdated to the capture time of the edge
// being dispatched, so dispatch latency does not add to the count.
func NewEdgeStopwatch(q *EdgeQueue) *Stopwatch {
	return &Stopwatch{lag: q.Lag}
}

func noLag() time.Duration { return 0 }

func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.watch = stopwatch.Start(s.paused + s.lag())
}

func (s *Stopwatch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.paused = s.elapsedLocked()
	s.running = false
	s.watch = nil
}

func (s *Stopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = 0
	if s.running {
		s.watch = stopwatch.Start(s.lag())
	}
}

func (s *Stopwatch) ElapsedMicros() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(s.elapsedLocked() / time.Microsecond)
}

func (s *Stopwatch) elapsedLocked() time.Duration {
	if !s.running {
		return s.paused
	}
	return max(s.watch.ElapsedTime()-s.lag(), 0)
}

// Alarm is a Callback built on time.AfterFunc. Functions run on their own
// goroutine; a function that was cancelled while already firing is
// suppressed. Alarm takes a mutex and may allocate, so it must not be
// used from interrupt context; queue edges with EdgeQueue instead.
type Alarm struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

var _ Callback = (*Alarm)(nil)

func NewAlarm() *Alarm {
	return &Alarm{}
}

func (a *Alarm) ScheduleOnce(d time.Duration, fn func()) {
	a.schedule(d, fn, false)
}

func (a *Alarm) ScheduleRepeating(d time.Duration, fn func()) {
	a.schedule(d, fn, d > 0)
}

func (a *Alarm) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Alarm) stopLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Alarm) schedule(d time.Duration, fn func(), repeat bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	gen := a.gen

	var fire func()
	fire = func() {
		a.mu.Lock()
		if gen != a.gen {
			a.mu.Unlock()
			return
		}
		if repeat {
			a.timer = time.AfterFunc(d, fire)
		} else {
			a.timer = nil
		}
		a.mu.Unlock()
		fn()
	}
	a.timer = time.AfterFunc(d, fire)
}
