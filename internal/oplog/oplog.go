// Package oplog accumulates human-readable trace entries for one
// logical operation. Entries are diagnostic only and never drive
// control decisions.
package oplog

import (
	"fmt"
	"sync"
)

// Log is a concurrency-safe ordered list of trace strings. A nil *Log
// is valid and discards everything, so components can run without
// tracing wired in.
type Log struct {
	mu      sync.Mutex
	entries []string
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Append records a single entry.
func (l *Log) Append(entry string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Appendf records a formatted entry.
func (l *Log) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// Entries returns a copy of all recorded entries in order.
func (l *Log) Entries() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}
