package sim

import (
	"slices"
	"sync"

	"github.com/itohio/sonar/pkg/hal"
)

// Pin is a simulated GPIO. It can be driven as an output and observed as an
// edge input. Edge handlers fire only on level changes.
type Pin struct {
	*hal.Line

	mu       sync.Mutex
	level    bool
	edges    int
	watchers []func(level bool)
}

var (
	_ hal.DigitalOutput = (*Pin)(nil)
	_ hal.EdgeInput     = (*Pin)(nil)
)

func NewPin() *Pin {
	p := &Pin{}
	p.Line = hal.NewLine(p.Level)
	return p
}

// Level returns the current pin level.
func (p *Pin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Edges returns the number of level changes so far.
func (p *Pin) Edges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edges
}

// Watch registers fn to be called after each level change.
func (p *Pin) Watch(fn func(level bool)) {
	p.mu.Lock()
	p.watchers = append(p.watchers, fn)
	p.mu.Unlock()
}

// Write drives the pin. Edge handlers and watchers run synchronously.
func (p *Pin) Write(level bool) {
	p.mu.Lock()
	if p.level == level {
		p.mu.Unlock()
		return
	}
	p.level = level
	p.edges++
	watchers := slices.Clone(p.watchers)
	p.mu.Unlock()

	p.Line.Dispatch(level)
	for _, fn := range watchers {
		fn(level)
	}
}
