package hal

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStopwatch(t *testing.T) {
	s := NewStopwatch()
	assert.Equal(t, uint32(0), s.ElapsedMicros(), "not started")

	s.Start()
	time.Sleep(2 * time.Millisecond)
	s.Stop()

	elapsed := s.ElapsedMicros()
	assert.GreaterOrEqual(t, elapsed, uint32(2000))

	time.Sleep(time.Millisecond)
	assert.Equal(t, elapsed, s.ElapsedMicros(), "stopped watch does not count")

	s.Reset()
	assert.Equal(t, uint32(0), s.ElapsedMicros())
}

func TestAlarm_Once(t *testing.T) {
	a := NewAlarm()
	var fired atomic.Int32

	a.ScheduleOnce(time.Millisecond, func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestAlarm_RepeatingAndCancel(t *testing.T) {
	a := NewAlarm()
	var fired atomic.Int32

	a.ScheduleRepeating(time.Millisecond, func() { fired.Add(1) })
	assert.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, time.Millisecond)

	a.Cancel()
	time.Sleep(5 * time.Millisecond)
	n := fired.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, fired.Load(), "no calls after cancel")
}

func TestAlarm_RescheduleReplaces(t *testing.T) {
	a := NewAlarm()
	var first, second atomic.Int32

	a.ScheduleOnce(20*time.Millisecond, func() { first.Add(1) })
	a.ScheduleOnce(time.Millisecond, func() { second.Add(1) })

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestBusyWait(t *testing.T) {
	start := time.Now()
	BusyWait(100 * time.Microsecond)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Microsecond)
}

func TestAlarm_RescheduleWhileFiring(t *testing.T) {
	a := NewAlarm()
	entered := make(chan struct{})
	release := make(chan struct{})
	var first, second atomic.Int32

	a.ScheduleRepeating(20*time.Millisecond, func() {
		if first.Add(1) == 1 {
			close(entered)
			<-release
		}
	})

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("alarm did not fire")
	}

	// The first call is still running.
	a.Cancel()
	a.ScheduleOnce(time.Millisecond, func() { second.Add(1) })
	close(release)

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), first.Load(), "cancelled repeating alarm does not fire again")
	assert.Equal(t, int32(1), second.Load())
}

func TestAlarm_CancelFromCallback(t *testing.T) {
	a := NewAlarm()
	var fired atomic.Int32

	a.ScheduleRepeating(5*time.Millisecond, func() {
		fired.Add(1)
		a.Cancel()
	})

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}
