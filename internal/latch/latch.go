// Package latch holds the single-slot event state shared between edge
// handlers and the polling loop.
//
// Writers (debounce timer callbacks) call Set from any goroutine. The
// polling loop calls ReadAndAdvance. Both slots live behind one mutex, so a
// reader never observes a half-updated pair.
package latch

import "sync"

// LineID identifies a physical input line. It is assigned from config at
// startup and never changes.
type LineID int

// slot is an optional LineID.
type slot struct {
	id  LineID
	set bool
}

func (s *slot) take() slot {
	v := *s
	*s = slot{}
	return v
}

// Latch holds the most recent accepted event and the last event handed to
// the consumer.
type Latch struct {
	mu      sync.Mutex
	current slot
	last    slot
}

// New creates an empty Latch.
func New() *Latch {
	return &Latch{}
}

// Set overwrites the current event. An unread earlier value is lost.
func (l *Latch) Set(id LineID) {
	l.mu.Lock()
	l.current = slot{id: id, set: true}
	l.mu.Unlock()
}

// ReadAndAdvance returns the current event, if any, and records it as the
// last reported event. It returns false when nothing was set since the
// previous call.
//
// A repeat of the last reported id is reported again: the last slot only
// distinguishes "no change" from "new press".
func (l *Latch) ReadAndAdvance() (LineID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	curr := l.current.take()
	prev := l.last.take()

	if !curr.set {
		// No new event, keep what was last reported.
		l.last = prev
		return 0, false
	}

	l.last = curr
	return curr.id, true
}

// LastReported returns the id last returned by ReadAndAdvance.
func (l *Latch) LastReported() (LineID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last.id, l.last.set
}
