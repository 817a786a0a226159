package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_OnceFiresAtDeadline(t *testing.T) {
	c := NewClock()
	cb := c.NewCallback()

	var at []time.Duration
	cb.ScheduleOnce(10*time.Millisecond, func() { at = append(at, c.Now()) })

	c.Advance(9 * time.Millisecond)
	assert.Empty(t, at)
	assert.True(t, cb.Armed())

	c.Advance(5 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, at)
	assert.Equal(t, 14*time.Millisecond, c.Now())
	assert.False(t, cb.Armed())
}

func TestClock_RepeatingAndCancel(t *testing.T) {
	c := NewClock()
	cb := c.NewCallback()

	n := 0
	cb.ScheduleRepeating(time.Millisecond, func() { n++ })
	c.Advance(5 * time.Millisecond)
	assert.Equal(t, 5, n)

	cb.Cancel()
	c.Advance(5 * time.Millisecond)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, c.Pending())
}

func TestClock_Ordering(t *testing.T) {
	c := NewClock()
	a, b, d := c.NewCallback(), c.NewCallback(), c.NewCallback()

	var order []string
	b.ScheduleOnce(2*time.Millisecond, func() { order = append(order, "b") })
	a.ScheduleOnce(time.Millisecond, func() { order = append(order, "a") })
	d.ScheduleOnce(2*time.Millisecond, func() { order = append(order, "d") })

	c.Advance(3 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "d"}, order, "deadline order, ties by scheduling order")
}

func TestClock_CallbackSchedulesFromInside(t *testing.T) {
	c := NewClock()
	cb := c.NewCallback()

	var at []time.Duration
	cb.ScheduleOnce(time.Millisecond, func() {
		at = append(at, c.Now())
		cb.ScheduleOnce(time.Millisecond, func() { at = append(at, c.Now()) })
	})

	c.Advance(10 * time.Millisecond)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, at)
}

func TestClock_RepeatingCancelledFromInside(t *testing.T) {
	c := NewClock()
	cb := c.NewCallback()

	n := 0
	cb.ScheduleRepeating(time.Millisecond, func() {
		n++
		if n == 2 {
			cb.Cancel()
		}
	})

	c.Advance(10 * time.Millisecond)
	assert.Equal(t, 2, n)
}

func TestClock_Sleep(t *testing.T) {
	c := NewClock()
	cb := c.NewCallback()

	fired := false
	cb.ScheduleOnce(time.Millisecond, func() { fired = true })

	c.Sleep(2 * time.Millisecond)
	assert.False(t, fired, "sleep does not run callbacks")
	assert.Equal(t, 2*time.Millisecond, c.Now())

	c.Advance(0)
	assert.True(t, fired)
	assert.Equal(t, 2*time.Millisecond, c.Now(), "late callback does not move time back")
}

func TestTimer(t *testing.T) {
	c := NewClock()
	tm := c.NewTimer()

	tm.Start()
	c.Advance(580 * time.Microsecond)
	assert.Equal(t, uint32(580), tm.ElapsedMicros())

	tm.Stop()
	assert.False(t, tm.Running())
	c.Advance(time.Millisecond)
	assert.Equal(t, uint32(580), tm.ElapsedMicros())

	tm.Start()
	c.Advance(20 * time.Microsecond)
	assert.Equal(t, uint32(600), tm.ElapsedMicros())

	tm.Stop()
	tm.Reset()
	assert.Equal(t, uint32(0), tm.ElapsedMicros())
}
