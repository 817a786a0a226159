package hal

import (
	"errors"
	"fmt"
)

// MaxLines is the capacity of a Registry. It covers every GPIO of an
// STM32 with ports A to H.
const MaxLines = 128

var (
	// ErrLineRange is returned for an id outside the registry arena.
	ErrLineRange = errors.New("line id out of range")
	// ErrLineInUse is returned when an id is already registered.
	ErrLineInUse = errors.New("line id already registered")
)

// LineID identifies a peripheral input line, normally its pin number.
type LineID uint8

// Line is an EdgeInput whose handlers are called by Dispatch. Platform code
// calls Dispatch outside interrupt context, normally from EdgeQueue.Drain.
type Line struct {
	mu   Critical
	rise func()
	fall func()
	read func() bool
}

var _ EdgeInput = (*Line)(nil)

// NewLine creates a line reading its level through read. A nil read
// always reports low.
func NewLine(read func() bool) *Line {
	if read == nil {
		read = func() bool { return false }
	}
	return &Line{
		rise: Noop,
		fall: Noop,
		read: read,
	}
}

// OnRise installs the rising edge handler. nil detaches it.
func (l *Line) OnRise(fn func()) {
	if fn == nil {
		fn = Noop
	}
	l.mu.Lock()
	l.rise = fn
	l.mu.Unlock()
}

// OnFall installs the falling edge handler. nil detaches it.
func (l *Line) OnFall(fn func()) {
	if fn == nil {
		fn = Noop
	}
	l.mu.Lock()
	l.fall = fn
	l.mu.Unlock()
}

// Read returns the current level of the line.
func (l *Line) Read() bool {
	return l.read()
}

// Dispatch runs the handler for an edge that left the line at level.
// The handler is called outside the line's critical section.
func (l *Line) Dispatch(level bool) {
	l.mu.Lock()
	fn := l.fall
	if level {
		fn = l.rise
	}
	l.mu.Unlock()
	fn()
}

// Registry is a fixed arena of lines indexed by LineID. Edges resolve the
// line for a pin in O(1).
type Registry struct {
	mu    Critical
	lines [MaxLines]*Line
}

// Register binds l to id.
func (r *Registry) Register(id LineID, l *Line) error {
	if int(id) >= MaxLines {
		return fmt.Errorf("register line %d: %w", id, ErrLineRange)
	}
	if l == nil {
		return fmt.Errorf("register line %d: nil line", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lines[id] != nil {
		return fmt.Errorf("register line %d: %w", id, ErrLineInUse)
	}
	r.lines[id] = l
	return nil
}

// Release unbinds id. Releasing a free id is a no-op.
func (r *Registry) Release(id LineID) {
	if int(id) >= MaxLines {
		return
	}
	r.mu.Lock()
	r.lines[id] = nil
	r.mu.Unlock()
}

// Lookup returns the line bound to id or nil.
func (r *Registry) Lookup(id LineID) *Line {
	if int(id) >= MaxLines {
		return nil
	}
	r.mu.Lock()
	l := r.lines[id]
	r.mu.Unlock()
	return l
}

// Dispatch forwards an edge on id to its line. It reports whether a line
// was registered.
func (r *Registry) Dispatch(id LineID, level bool) bool {
	l := r.Lookup(id)
	if l == nil {
		return false
	}
	l.Dispatch(level)
	return true
}
