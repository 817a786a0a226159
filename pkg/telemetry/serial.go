package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/itohio/sonar/pkg/ranger"
	"github.com/itohio/sonar/pkg/report"
)

// DefaultBaudRate matches the UART configuration of the firmware.
const DefaultBaudRate = 115200

var (
	errAlreadyConnected = errors.New("already connected")
)

// Serial reads report lines printed by the firmware.
type Serial struct {
	port     string
	baudRate int
	logger   ranger.Logger

	conn      serial.Port
	reports   chan report.Report
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// NewSerial creates a serial source for the given port. Zero baudRate and
// bufSize select the defaults; a nil logger discards messages.
func NewSerial(port string, baudRate int, bufSize int, logger ranger.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = &ranger.NullLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		logger:   logger,
		reports:  make(chan report.Report, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Connect opens the serial port and starts reading reports.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return errAlreadyConnected
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		d.readReports(port)
	}()

	return nil
}

// Close closes the port and the reports channel once the reader exited.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		if cerr := d.conn.Close(); cerr != nil {
			err = fmt.Errorf("failed to close serial port %s: %w", d.port, cerr)
		}
		d.conn = nil
	}

	<-d.done
	d.connected = false
	close(d.reports)

	return err
}

// Reports returns the channel for reading reports.
func (d *Serial) Reports() <-chan report.Report {
	return d.reports
}

// IsConnected returns whether the port is currently open.
func (d *Serial) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// readReports scans lines from r until EOF, an error or cancellation.
func (d *Serial) readReports(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if len(line) == 0 || line == "\r" {
			continue
		}

		rep, err := report.Parse(line)
		if err != nil {
			d.logger.Warnf("failed to parse line %q: %v", line, err)
			continue
		}

		select {
		case d.reports <- rep:
		case <-d.ctx.Done():
			return
		default:
			d.logger.Warn("reports channel full, dropping report")
		}
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		d.logger.Errorf("error reading from serial port %s: %v", d.port, err)
	}
}
