// Package sim provides deterministic virtual hardware for exercising the
// ranger without a board. Time only moves when Advance or Sleep is called.
package sim

import (
	"sort"
	"sync"
	"time"

	"github.com/itohio/sonar/pkg/hal"
)

type entry struct {
	at     time.Duration
	period time.Duration
	seq    uint64
	fn     func()
}

// Clock is a virtual monotonic clock with an ordered queue of pending
// callbacks.
type Clock struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending []*entry
}

func NewClock() *Clock {
	return &Clock{}
}

// Now returns the virtual time since the clock was created.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep moves time forward without running callbacks. It models a
// busy-wait inside an interrupt handler and satisfies hal.DelayFunc.
func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Advance moves time forward by d, running every callback that falls due
// in deadline order. Callbacks run without the clock lock held and may
// schedule or cancel further callbacks.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(c.pending) == 0 || c.pending[0].at > target {
			if c.now < target {
				c.now = target
			}
			c.mu.Unlock()
			return
		}
		e := c.pending[0]
		c.pending = c.pending[1:]
		if c.now < e.at {
			c.now = e.at
		}
		if e.period > 0 {
			e.at += e.period
			c.insertLocked(e)
		}
		c.mu.Unlock()

		e.fn()
	}
}

// Pending returns the number of queued callbacks.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Clock) insertLocked(e *entry) {
	c.seq++
	e.seq = c.seq
	i := sort.Search(len(c.pending), func(i int) bool {
		p := c.pending[i]
		return p.at > e.at || (p.at == e.at && p.seq > e.seq)
	})
	c.pending = append(c.pending, nil)
	copy(c.pending[i+1:], c.pending[i:])
	c.pending[i] = e
}

func (c *Clock) removeLocked(e *entry) {
	for i, p := range c.pending {
		if p == e {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// NewCallback returns a hal.Callback driven by this clock.
func (c *Clock) NewCallback() *Callback {
	return &Callback{clock: c}
}

// NewTimer returns a hal.Timer reading this clock.
func (c *Clock) NewTimer() *Timer {
	return &Timer{clock: c}
}

// Callback holds at most one queued function on a Clock.
type Callback struct {
	clock *Clock
	e     *entry
}

var _ hal.Callback = (*Callback)(nil)

func (cb *Callback) ScheduleOnce(d time.Duration, fn func()) {
	cb.schedule(d, 0, fn)
}

func (cb *Callback) ScheduleRepeating(d time.Duration, fn func()) {
	cb.schedule(d, d, fn)
}

func (cb *Callback) Cancel() {
	c := cb.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb.e != nil {
		c.removeLocked(cb.e)
		cb.e = nil
	}
}

// Armed reports whether a function is queued.
func (cb *Callback) Armed() bool {
	c := cb.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb.e == nil {
		return false
	}
	for _, p := range c.pending {
		if p == cb.e {
			return true
		}
	}
	return false
}

func (cb *Callback) schedule(d, period time.Duration, fn func()) {
	c := cb.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb.e != nil {
		c.removeLocked(cb.e)
	}
	cb.e = &entry{at: c.now + d, period: period, fn: fn}
	c.insertLocked(cb.e)
}

// Timer is a stopwatch over the virtual clock.
type Timer struct {
	clock   *Clock
	running bool
	started time.Duration
	elapsed time.Duration
}

var _ hal.Timer = (*Timer)(nil)

func (t *Timer) Start() {
	if t.running {
		return
	}
	t.running = true
	t.started = t.clock.Now()
}

func (t *Timer) Stop() {
	if !t.running {
		return
	}
	t.elapsed += t.clock.Now() - t.started
	t.running = false
}

func (t *Timer) Reset() {
	t.elapsed = 0
	t.started = t.clock.Now()
}

// Running reports whether the timer is counting.
func (t *Timer) Running() bool {
	return t.running
}

func (t *Timer) ElapsedMicros() uint32 {
	d := t.elapsed
	if t.running {
		d += t.clock.Now() - t.started
	}
	return uint32(d / time.Microsecond)
}
