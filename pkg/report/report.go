// Package report encodes ranger notifications as text lines, the format the
// firmware prints on its UART and the host reads back.
//
// Format: unix_micros,event,value
// Example: 1234567890123,1,20
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/sonar/pkg/ranger"
)

// Report is one notification of the ranger.
type Report struct {
	Timestamp time.Time
	Event     ranger.Event
	Value     int16 // Distance in cm, or ranger.ErrorCode for MeasureError
}

// Err returns the error code carried by a MeasureError report, or
// ranger.NoErrors.
func (r Report) Err() ranger.ErrorCode {
	if r.Event != ranger.MeasureError {
		return ranger.NoErrors
	}
	return ranger.ErrorCode(r.Value)
}

func (r Report) String() string {
	if r.Event == ranger.MeasureError {
		return fmt.Sprintf("%s %s", r.Event, r.Err())
	}
	return fmt.Sprintf("%s %dcm", r.Event, r.Value)
}

// AppendLine appends the newline terminated encoding of r to dst. It does
// not allocate when dst has room, so it is usable on the MCU.
func AppendLine(dst []byte, r Report) []byte {
	dst = strconv.AppendInt(dst, r.Timestamp.UnixMicro(), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(r.Event), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(r.Value), 10)
	return append(dst, '\n')
}

// Format returns the encoding of r without the line terminator.
func Format(r Report) string {
	b := AppendLine(make([]byte, 0, 32), r)
	return string(b[:len(b)-1])
}

// Parse decodes a single line.
func Parse(line string) (Report, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Report{}, fmt.Errorf("invalid line format: expected 3 comma-separated values, got %d", len(parts))
	}

	timestampMicros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Report{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	event, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return Report{}, fmt.Errorf("invalid event: %w", err)
	}
	if !ranger.Event(event).Valid() {
		return Report{}, fmt.Errorf("event out of range: %d (max %d)", event, ranger.MeasureError)
	}

	value, err := strconv.ParseInt(parts[2], 10, 16)
	if err != nil {
		return Report{}, fmt.Errorf("invalid value: %w", err)
	}

	return Report{
		Timestamp: time.UnixMicro(timestampMicros),
		Event:     ranger.Event(event),
		Value:     int16(value),
	}, nil
}
