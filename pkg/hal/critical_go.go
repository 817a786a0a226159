//go:build !tinygo

package hal

import "sync"

// Critical guards state shared between interrupt handlers and the owning
// goroutine. On a hosted runtime callbacks run on arbitrary goroutines, so
// a mutex is used.
type Critical struct {
	mu sync.Mutex
}

func (c *Critical) Lock() {
	c.mu.Lock()
}

func (c *Critical) Unlock() {
	c.mu.Unlock()
}
