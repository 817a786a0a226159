//go:build tinygo

package main

import "machine"

const (
	// Measurement configuration
	PERIOD_MS          = 100 // Trigger period in milliseconds
	TIMEOUT_MS         = 60  // Echo watchdog in milliseconds
	MAX_DISTANCE_CM    = 200 // Readings beyond are clamped
	APPROACH_CM        = 10  // Minimum decrease for an approaching event
	DEPART_CM          = 10  // Minimum increase for a moving-away event
	FILTER_SAMPLES     = 3   // Glitch filter window (0 = disabled)
	FILTER_TOLERANCE   = 5   // Maximum spread inside the window in cm
	INSTANTANEOUS_EVTS = false
	ERROR_EVTS         = true

	// Sensor pins
	PIN_TRIGGER = machine.PA0
	PIN_ECHO    = machine.PA1

	// Serial configuration
	// Line format: "unix_micros,event,value\n", ~25 bytes at most 10/s
	UART_BAUD_RATE = 115200

	// Depth of the report queue between the ranger and the UART writer
	QUEUE_SIZE = 16
)
