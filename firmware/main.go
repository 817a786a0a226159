//go:build tinygo

//go:generate tinygo flash -target=nucleo-l432kc

package main

import (
	"machine"
	"time"

	"github.com/itohio/sonar/pkg/hal"
	"github.com/itohio/sonar/pkg/ranger"
	"github.com/itohio/sonar/pkg/report"
)

var (
	uart  = machine.DefaultUART
	lines hal.Registry
	edges hal.EdgeQueue

	// Reports produced by the ranger, drained by the main loop
	queue     [QUEUE_SIZE]report.Report
	queueHead int
	queueLen  int
	dropped   int
	queueMu   hal.Critical

	lineBuffer [32]byte
)

// output adapts a machine pin to hal.DigitalOutput.
type output machine.Pin

func (p output) Write(level bool) {
	machine.Pin(p).Set(level)
}

// onEdge is the single interrupt trampoline for every registered line. It
// only stamps the edge; the main loop dispatches it.
func onEdge(p machine.Pin) {
	edges.Push(hal.Edge{Line: hal.LineID(p), Level: p.Get(), At: time.Now()})
}

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	PIN_TRIGGER.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_TRIGGER.Low()
	PIN_ECHO.Configure(machine.PinConfig{Mode: machine.PinInput})

	echo := hal.NewLine(PIN_ECHO.Get)
	if err := lines.Register(hal.LineID(PIN_ECHO), echo); err != nil {
		fail(err)
	}
	if err := PIN_ECHO.SetInterrupt(machine.PinToggle, onEdge); err != nil {
		fail(err)
	}

	r, err := ranger.New(ranger.Peripherals{
		Trigger:   output(PIN_TRIGGER),
		Echo:      echo,
		EchoTimer: hal.NewEdgeStopwatch(&edges),
		Ticker:    hal.NewAlarm(),
		Watchdog:  hal.NewAlarm(),
		Delay:     hal.BusyWait,
	}, ranger.WithConfig(ranger.Config{
		MaxDistanceCm:       MAX_DISTANCE_CM,
		ApproachThresholdCm: APPROACH_CM,
		DepartThresholdCm:   DEPART_CM,
		FilterSamples:       FILTER_SAMPLES,
		FilterToleranceCm:   FILTER_TOLERANCE,
		InstantaneousEvents: INSTANTANEOUS_EVTS,
		ErrorEvents:         ERROR_EVTS,
	}))
	if err != nil {
		fail(err)
	}

	r.Start(ranger.ListenerFunc(enqueue), PERIOD_MS*time.Millisecond, TIMEOUT_MS*time.Millisecond)

	// Main loop
	for {
		if edges.Drain(&lines) > 0 {
			continue
		}
		if rep, ok := dequeue(); ok {
			uart.Write(report.AppendLine(lineBuffer[:0], rep))
			continue
		}
		time.Sleep(time.Millisecond)
	}
}

// enqueue is the ranger listener. It runs on the alarm goroutines as well
// as the main loop, so reports are handed over through the queue.
func enqueue(event ranger.Event, value int16) {
	rep := report.Report{Timestamp: time.Now(), Event: event, Value: value}

	queueMu.Lock()
	if queueLen == QUEUE_SIZE {
		dropped++
	} else {
		queue[(queueHead+queueLen)%QUEUE_SIZE] = rep
		queueLen++
	}
	queueMu.Unlock()
}

func dequeue() (report.Report, bool) {
	queueMu.Lock()
	defer queueMu.Unlock()
	if queueLen == 0 {
		return report.Report{}, false
	}
	rep := queue[queueHead]
	queueHead = (queueHead + 1) % QUEUE_SIZE
	queueLen--
	return rep, true
}

func fail(err error) {
	for {
		println("sonar:", err.Error())
		time.Sleep(time.Second)
	}
}
