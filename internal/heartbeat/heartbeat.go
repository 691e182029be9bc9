// Package heartbeat provides the single shared liveness timestamp the
// Supervisor watches across the Capture Loop and Upload Worker.
package heartbeat

import (
	"sync"
	"time"
)

// Heartbeat is a thread-safe last-beat timestamp.
type Heartbeat struct {
	mu   sync.Mutex
	last time.Time
}

// New returns a Heartbeat already beaten once, so a supervisor started
// before the first real beat doesn't immediately see a stale gap.
func New() *Heartbeat {
	return &Heartbeat{last: time.Now()}
}

// Beat records the current time as the most recent sign of life.
func (h *Heartbeat) Beat() {
	h.mu.Lock()
	h.last = time.Now()
	h.mu.Unlock()
}

// Last returns the timestamp of the most recent beat.
func (h *Heartbeat) Last() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
