//go:build tinygo

package hal

import "runtime/interrupt"

// Critical guards state shared between interrupt handlers and the main
// loop by masking interrupts. It is not reentrant.
type Critical struct {
	state interrupt.State
}

func (c *Critical) Lock() {
	c.state = interrupt.Disable()
}

func (c *Critical) Unlock() {
	interrupt.Restore(c.state)
}
