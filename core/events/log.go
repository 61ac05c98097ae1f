package events

import (
	"sync"

	"loyaltychain/core/types"
)

// payloader is implemented by events that can render themselves as a generic
// attribute payload for external consumers.
type payloader interface {
	Event() *types.Event
}

// Log is an append-only emitter that records every event as its generic
// payload. It is the externally observable notification stream: RPC clients
// read it back, nothing ever removes entries from it.
type Log struct {
	mu      sync.RWMutex
	entries []*types.Event
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{}
}

// Emit implements the Emitter interface.
func (l *Log) Emit(e Event) {
	if e == nil {
		return
	}
	entry := &types.Event{Type: e.EventType(), Attributes: map[string]string{}}
	if p, ok := e.(payloader); ok {
		entry = p.Event()
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a snapshot of the recorded events in emission order.
func (l *Log) Entries() []*types.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*types.Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
