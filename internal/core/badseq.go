package core

import "sync"

// BadSequenceLog records identifiers of sequences the classifier could not process.
type BadSequenceLog struct {
	mu  sync.Mutex
	ids []string
}

// Add appends a sequence identifier.
func (l *BadSequenceLog) Add(id string) {
	l.mu.Lock()
	l.ids = append(l.ids, id)
	l.mu.Unlock()
}

// IDs returns the recorded identifiers in insertion order.
func (l *BadSequenceLog) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out
}

// Len returns the number of recorded identifiers.
func (l *BadSequenceLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}
