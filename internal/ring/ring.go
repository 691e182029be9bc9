// Package ring implements the pre-roll frame buffer: a fixed-capacity,
// capture-order circular buffer with a single mutex shared by append and
// snapshot so a snapshot never observes a partially appended frame.
package ring

import (
	"container/ring"
	"sync"
)

// Frame is an opaque decoded image, immutable once captured.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	CapturedAt int64 // unix nanoseconds, set by the capture loop
}

// Ring is a bounded, capture-order queue of Frames. The zero value is not
// usable; construct with New. Capacity is fixed at construction — the
// capture loop sets it exactly once, when it has established the true FPS.
type Ring struct {
	mu       sync.Mutex
	buf      *ring.Ring
	capacity int
	len      int
	width    int
	height   int
}

// New constructs a Ring with room for capacity frames, all sharing the given
// width and height.
func New(capacity, width, height int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf:      ring.New(capacity),
		capacity: capacity,
		width:    width,
		height:   height,
	}
}

// Append adds a frame, evicting the oldest frame if the ring is full. O(1).
func (r *Ring) Append(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf.Value = f
	r.buf = r.buf.Next()
	if r.len < r.capacity {
		r.len++
	}
}

// Len returns the current number of frames held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.len
}

// Capacity returns the fixed ring capacity.
func (r *Ring) Capacity() int {
	return r.capacity
}

// Dimensions returns the width and height shared by every frame in the ring.
func (r *Ring) Dimensions() (width, height int) {
	return r.width, r.height
}

// SnapshotTail returns an independent copy of the most recent min(n, Len())
// frames, oldest first. The copy is taken while holding the same mutex used
// by Append, so it never observes a partially appended frame and is
// sequentially consistent with respect to concurrent appends.
func (r *Ring) SnapshotTail(n int) []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.len {
		n = r.len
	}
	if n <= 0 {
		return nil
	}

	out := make([]Frame, n)
	// r.buf points at the next slot to be written, i.e. one past the newest
	// frame. Walk backward n steps to collect the most recent n frames in
	// capture order.
	cursor := r.buf
	for i := n - 1; i >= 0; i-- {
		cursor = cursor.Prev()
		out[i] = cursor.Value.(Frame)
	}
	return out
}
