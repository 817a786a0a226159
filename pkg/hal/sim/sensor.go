package sim

import (
	"time"

	"github.com/chewxy/math32"
)

const (
	// MinTriggerWidth is the shortest trigger pulse the sensor reacts to.
	MinTriggerWidth = 10 * time.Microsecond
	// DefaultEchoDelay is the time between trigger release and echo start.
	DefaultEchoDelay = 250 * time.Microsecond
	// MicrosPerCm is the round trip flight time per centimetre.
	MicrosPerCm = 58
)

// DistanceFunc returns the distance in cm the sensor should report for the
// next measurement. A negative value produces no echo at all.
type DistanceFunc func() float32

// Sequence returns a DistanceFunc replaying values in order and repeating
// the last one when exhausted.
func Sequence(values ...float32) DistanceFunc {
	i := 0
	return func() float32 {
		if len(values) == 0 {
			return -1
		}
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

// EchoWidth converts a distance into the echo pulse width.
func EchoWidth(cm float32) time.Duration {
	if cm <= 0 {
		return 0
	}
	return time.Duration(math32.Round(cm*MicrosPerCm)) * time.Microsecond
}

// Sensor emulates an HC-SR04: a trigger pulse of at least MinTriggerWidth
// on trig is answered by a high pulse on echo whose width encodes the
// distance.
type Sensor struct {
	clock     *Clock
	echo      *Pin
	distance  DistanceFunc
	cb        *Callback
	EchoDelay time.Duration

	risen    time.Duration
	triggers int
}

// NewSensor attaches a sensor between trig and echo.
func NewSensor(clock *Clock, trig, echo *Pin, distance DistanceFunc) *Sensor {
	s := &Sensor{
		clock:     clock,
		echo:      echo,
		distance:  distance,
		cb:        clock.NewCallback(),
		EchoDelay: DefaultEchoDelay,
	}
	trig.Watch(s.onTrigger)
	return s
}

// Triggers returns the number of accepted trigger pulses.
func (s *Sensor) Triggers() int {
	return s.triggers
}

func (s *Sensor) onTrigger(level bool) {
	now := s.clock.Now()
	if level {
		s.risen = now
		return
	}
	if now-s.risen < MinTriggerWidth {
		return
	}
	s.triggers++

	// A new trigger aborts an echo still in flight.
	s.cb.Cancel()
	s.echo.Write(false)

	cm := s.distance()
	if cm < 0 {
		return
	}
	width := EchoWidth(cm)
	s.cb.ScheduleOnce(s.EchoDelay, func() {
		s.echo.Write(true)
		s.cb.ScheduleOnce(width, func() {
			s.echo.Write(false)
		})
	})
}
