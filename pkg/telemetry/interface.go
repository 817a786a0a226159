// Package telemetry delivers ranger reports to host programs, either read
// from a device over a serial port or produced by a simulated sensor.
package telemetry

import "github.com/itohio/sonar/pkg/report"

// DefaultBufferSize is the default size for the reports channel buffer.
const DefaultBufferSize = 100

// Source defines the interface for report sources (real or simulated).
type Source interface {
	Connect() error
	Close() error
	Reports() <-chan report.Report
	IsConnected() bool
}

// Ensure Serial implements Source.
var _ Source = (*Serial)(nil)

// Ensure Sim implements Source.
var _ Source = (*Sim)(nil)
