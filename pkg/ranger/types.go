package ranger

import "fmt"

// State is the execution state of a measurement session.
type State uint8

const (
	// Stopped does nothing until Start.
	Stopped State = iota
	// WaitingTrigger waits for the scheduler to issue the next trigger.
	WaitingTrigger
	// Triggered is held while the trigger pulse is being driven.
	Triggered
	// WaitingEcho waits for the rising edge of the echo.
	WaitingEcho
	// WaitingEchoEnd waits for the falling edge of the echo.
	WaitingEchoEnd
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case WaitingTrigger:
		return "waiting-trigger"
	case Triggered:
		return "triggered"
	case WaitingEcho:
		return "waiting-echo"
	case WaitingEchoEnd:
		return "waiting-echo-end"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Event is the tag of a notification delivered to the Listener.
type Event uint8

const (
	// NoEvents tags an unfiltered instantaneous distance.
	NoEvents Event = iota
	// Approaching reports the target came closer than the approach threshold.
	Approaching
	// MovingAway reports the target went further than the depart threshold.
	MovingAway
	// MeasureError carries an ErrorCode instead of a distance.
	MeasureError
)

func (e Event) String() string {
	switch e {
	case NoEvents:
		return "none"
	case Approaching:
		return "approaching"
	case MovingAway:
		return "moving-away"
	case MeasureError:
		return "measure-error"
	}
	return fmt.Sprintf("event(%d)", uint8(e))
}

// Valid reports whether e is a known event.
func (e Event) Valid() bool {
	return e <= MeasureError
}

// ErrorCode identifies the violated precondition of a failed cycle.
type ErrorCode int16

const (
	NoErrors ErrorCode = iota
	// TriggerError: the scheduler fired before the previous cycle finished.
	TriggerError
	// EchoStartError: a rising echo edge arrived unexpectedly.
	EchoStartError
	// EchoEndError: a falling echo edge arrived unexpectedly.
	EchoEndError
	// EchoMissingError: the watchdog expired before the echo completed.
	EchoMissingError
)

func (c ErrorCode) String() string {
	switch c {
	case NoErrors:
		return "no-errors"
	case TriggerError:
		return "trigger-error"
	case EchoStartError:
		return "echo-start-error"
	case EchoEndError:
		return "echo-end-error"
	case EchoMissingError:
		return "echo-missing-error"
	}
	return fmt.Sprintf("error(%d)", int16(c))
}

func (c ErrorCode) Error() string {
	return c.String()
}

// Listener receives driver notifications. value is a distance in cm, or
// an ErrorCode for MeasureError. It is called outside the driver's
// critical section, possibly from interrupt context.
type Listener interface {
	HandleDistanceEvent(event Event, value int16)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(event Event, value int16)

func (f ListenerFunc) HandleDistanceEvent(event Event, value int16) {
	f(event, value)
}
