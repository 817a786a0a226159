// Package ranger implements an event driven driver for HC-SR04 style
// ultrasonic distance sensors.
//
// A periodic scheduler emits a trigger pulse, the echo width is timed between
// the rising and falling edge of the echo line, and a watchdog recovers
// cycles whose echo never completes. Readings pass a sliding window glitch
// filter and only changes beyond the configured thresholds are reported.
// Every protocol violation restarts the cycle; the driver never gives up.
package ranger

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/sonar/pkg/hal"
)

// ErrMissingPeripheral is returned by New when a required capability is nil.
var ErrMissingPeripheral = errors.New("missing peripheral")

// Peripherals are the hardware capabilities a Ranger drives. Ticker and
// Watchdog must be distinct callbacks.
type Peripherals struct {
	Trigger   hal.DigitalOutput
	Echo      hal.EdgeInput
	EchoTimer hal.Timer
	Ticker    hal.Callback
	Watchdog  hal.Callback
	Delay     hal.DelayFunc // Defaults to hal.BusyWait
}

func (p *Peripherals) validate() error {
	switch {
	case p.Trigger == nil:
		return fmt.Errorf("%w: trigger output", ErrMissingPeripheral)
	case p.Echo == nil:
		return fmt.Errorf("%w: echo input", ErrMissingPeripheral)
	case p.EchoTimer == nil:
		return fmt.Errorf("%w: echo timer", ErrMissingPeripheral)
	case p.Ticker == nil:
		return fmt.Errorf("%w: trigger ticker", ErrMissingPeripheral)
	case p.Watchdog == nil:
		return fmt.Errorf("%w: watchdog", ErrMissingPeripheral)
	}
	return nil
}

// Ranger is the measurement state machine. All methods are safe to call
// from any goroutine and from the installed Listener.
type Ranger struct {
	mu hal.Critical
	hw Peripherals

	logger Logger

	cfg      Config
	filter   Filter
	listener Listener
	period   time.Duration
	timeout  time.Duration

	state        State
	lastDistance int16
	lastEvent    Event
	lastError    ErrorCode
	measurements uint32
	errors       uint32

	// epoch changes whenever the trigger scheduler is re-armed or torn
	// down, cycle whenever the watchdog is. Callbacks carrying an old value
	// were already cancelled and are dropped.
	epoch uint32
	cycle uint32
}

// New creates a stopped Ranger with DefaultConfig.
func New(hw Peripherals, options ...func(*Ranger)) (*Ranger, error) {
	if err := hw.validate(); err != nil {
		return nil, err
	}
	if hw.Delay == nil {
		hw.Delay = hal.BusyWait
	}

	r := &Ranger{
		hw:           hw,
		logger:       &NullLogger{},
		state:        Stopped,
		lastDistance: -1,
		lastEvent:    NoEvents,
		lastError:    NoErrors,
	}
	r.setConfig(DefaultConfig())
	r.filter.Reset()

	for _, opt := range options {
		opt(r)
	}

	hw.Trigger.Write(false)
	r.detachEcho()

	return r, nil
}

// Configure replaces the measurement parameters. Out of range values are
// clamped. A running session uses the new values from the next reading on.
func (r *Ranger) Configure(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setConfig(cfg)
}

// Config returns the effective configuration.
func (r *Ranger) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Start begins a new session delivering notifications to l, which may be
// nil when only LastEvent is polled. A period of zero performs a single
// measurement. A zero timeout selects DefaultTimeout. A running session is
// torn down first.
func (r *Ranger) Start(l Listener, period, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.halt()
	r.listener = l
	r.period = period
	r.timeout = timeout
	r.measurements = 0
	r.errors = 0
	r.filter.Reset()
	r.lastDistance = -1
	r.lastEvent = NoEvents
	r.lastError = NoErrors
	r.state = WaitingTrigger
	r.arm()

	r.logger.Debugf("ranger started, period %v, timeout %v", period, timeout)
}

// Stop cancels all timers, detaches the echo handlers and drives the
// trigger low. It may be called in any state, any number of times.
func (r *Ranger) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Stopped {
		r.logger.Debugf("ranger stopped after %d measurements", r.measurements)
	}
	r.halt()
}

// LastEvent returns the last recorded event and the last accepted distance.
func (r *Ranger) LastEvent() (Event, int16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastEvent, r.lastDistance
}

// LastError returns the error of the last failed cycle of this session.
func (r *Ranger) LastError() ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// State returns the current state.
func (r *Ranger) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Measurements returns the number of in range readings of this session.
func (r *Ranger) Measurements() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.measurements
}

// Errors returns the number of failed cycles of this session.
func (r *Ranger) Errors() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

// notice is a pending Listener call, delivered after the critical section.
type notice struct {
	listener Listener
	event    Event
	value    int16
}

func (n notice) deliver() {
	if n.listener != nil {
		n.listener.HandleDistanceEvent(n.event, n.value)
	}
}

func (r *Ranger) notify(event Event, value int16) notice {
	return notice{listener: r.listener, event: event, value: value}
}

func (r *Ranger) setConfig(cfg Config) {
	r.cfg = cfg.normalized()
	r.filter.Configure(r.cfg.FilterSamples, r.cfg.FilterToleranceCm)
}

// arm schedules the trigger for the current period.
func (r *Ranger) arm() {
	r.epoch++
	epoch := r.epoch
	fire := func() { r.onTrigger(epoch) }
	if r.period > 0 {
		r.hw.Ticker.ScheduleRepeating(r.period, fire)
	} else {
		r.hw.Ticker.ScheduleOnce(0, fire)
	}
}

// disarm tears down everything belonging to the current cycle.
func (r *Ranger) disarm() {
	r.cycle++
	r.hw.Watchdog.Cancel()
	r.hw.EchoTimer.Stop()
	r.hw.EchoTimer.Reset()
	r.detachEcho()
}

func (r *Ranger) detachEcho() {
	r.hw.Echo.OnRise(hal.Noop)
	r.hw.Echo.OnFall(hal.Noop)
}

func (r *Ranger) halt() {
	r.epoch++
	r.hw.Ticker.Cancel()
	r.disarm()
	r.hw.Trigger.Write(false)
	r.state = Stopped
}

// restart resynchronises hardware and software state and re-arms the
// scheduler, keeping the configuration.
func (r *Ranger) restart() {
	r.disarm()
	r.state = WaitingTrigger
	r.arm()
}

func (r *Ranger) fail(code ErrorCode) notice {
	r.logger.Warnf("ranger %s in state %s, restarting", code, r.state)
	r.restart()
	r.lastError = code
	r.lastEvent = MeasureError
	r.errors++
	if !r.cfg.ErrorEvents {
		return notice{}
	}
	return r.notify(MeasureError, int16(code))
}

func (r *Ranger) onTrigger(epoch uint32) {
	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		return
	}
	n := r.trigger()
	r.mu.Unlock()
	n.deliver()
}

func (r *Ranger) onEchoStart(epoch uint32) {
	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		return
	}
	n := r.echoStart()
	r.mu.Unlock()
	n.deliver()
}

func (r *Ranger) onEchoEnd(epoch uint32) {
	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		return
	}
	n := r.echoEnd()
	r.mu.Unlock()
	n.deliver()
}

func (r *Ranger) onEchoMissing(cycle uint32) {
	r.mu.Lock()
	if cycle != r.cycle || r.state == Stopped {
		r.mu.Unlock()
		return
	}
	n := r.fail(EchoMissingError)
	r.mu.Unlock()
	n.deliver()
}

func (r *Ranger) trigger() notice {
	if r.state != WaitingTrigger {
		return r.fail(TriggerError)
	}

	r.cycle++
	cycle := r.cycle
	r.hw.Watchdog.ScheduleOnce(r.timeout, func() { r.onEchoMissing(cycle) })

	r.state = Triggered
	r.hw.Trigger.Write(true)
	r.hw.Delay(TriggerPulse)
	r.hw.Trigger.Write(false)

	epoch := r.epoch
	r.hw.Echo.OnRise(func() { r.onEchoStart(epoch) })
	r.hw.Echo.OnFall(func() { r.onEchoEnd(epoch) })
	r.state = WaitingEcho
	return notice{}
}

func (r *Ranger) echoStart() notice {
	if r.state != WaitingEcho {
		return r.fail(EchoStartError)
	}
	r.hw.EchoTimer.Start()
	r.state = WaitingEchoEnd
	return notice{}
}

func (r *Ranger) echoEnd() notice {
	if r.state != WaitingEchoEnd {
		return r.fail(EchoEndError)
	}

	flight := r.hw.EchoTimer.ElapsedMicros()
	r.disarm()

	var n notice
	cm := clampDistance(distanceFromFlight(flight), r.cfg.MaxDistanceCm)
	if cm <= int(r.cfg.MaxDistanceCm) {
		r.logger.Debugf("ranger echo %dus, %dcm", flight, cm)
		n = r.sample(int16(cm))
		r.measurements++
	} else {
		r.logger.Debugf("ranger echo %dus out of range", flight)
	}

	r.state = WaitingTrigger
	if r.period == 0 {
		r.halt()
	}
	return n
}

// sample runs a reading through the glitch filter and the hysteresis.
func (r *Ranger) sample(cm int16) notice {
	if !r.filter.Add(cm) {
		if r.cfg.InstantaneousEvents {
			return r.notify(NoEvents, cm)
		}
		return notice{}
	}

	if r.lastDistance < 0 {
		r.lastDistance = cm
		return notice{}
	}

	last := int(r.lastDistance)
	switch {
	case int(cm) < last-int(r.cfg.ApproachThresholdCm):
		r.lastEvent = Approaching
	case int(cm) > last+int(r.cfg.DepartThresholdCm):
		r.lastEvent = MovingAway
	default:
		return notice{}
	}
	r.lastDistance = cm
	return r.notify(r.lastEvent, cm)
}
