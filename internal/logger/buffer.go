package logger

import (
	"container/ring"
	"fmt"
	"sync"
	"time"
)

// LogEntry is one captured record, mirrored from whatever the Logger's
// slog.Handler wrote to its configured output.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
	Attrs     map[string]interface{}
}

// Buffer is a thread-safe circular tail of recent log entries. Every
// Logger built by New holds one, fed from bufferedHandler, so the Status
// API can surface recent activity without re-reading the output stream.
type Buffer struct {
	mu   sync.RWMutex
	ring *ring.Ring
	size int
}

// NewBuffer creates a new log buffer with the specified capacity
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		ring: ring.New(capacity),
		size: 0,
	}
}

// Add adds a log entry to the buffer
func (b *Buffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ring.Value = entry
	b.ring = b.ring.Next()

	if b.size < b.ring.Len() {
		b.size++
	}
}

// GetLast returns the last N log entries (newest first)
func (b *Buffer) GetLast(n int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.size {
		n = b.size
	}

	entries := make([]LogEntry, 0, n)

	// b.ring points one past the most recently written slot; walking
	// backwards from there visits newest to oldest.
	r := b.ring
	for i := 0; i < n && i < b.size; i++ {
		r = r.Prev()
		if r.Value != nil {
			if entry, ok := r.Value.(LogEntry); ok {
				entries = append(entries, entry)
			}
		}
	}

	return entries
}

// FormatEntry formats a log entry as a text line
func FormatEntry(e LogEntry) string {
	attrs := ""
	for k, v := range e.Attrs {
		attrs += fmt.Sprintf(" %s=%v", k, v)
	}
	return fmt.Sprintf("time=%s level=%s msg=%q%s",
		e.Timestamp.Format("15:04:05"),
		e.Level,
		e.Message,
		attrs,
	)
}
