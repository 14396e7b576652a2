// Package status provides a thread-safe status tracker for the keypad-bridge daemon.
// It is read by the HTTP handlers and by heartbeat/lifecycle publishing.
package status

import (
	"sync"
	"time"
)

// Line describes one configured input line for display.
type Line struct {
	ID  int
	Pin int
}

// Config contains daemon configuration for display.
type Config struct {
	Backend     string
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string // empty = events go to the log
	HTTPAddr    string
	Lines       []Line
}

// Counts tracks events since startup.
type Counts struct {
	Accepted  int         // events read from the latch
	Forwarded int         // events the sink accepted
	Dropped   int         // events lost at the sink boundary
	PerLine   map[int]int // accepted events by line id
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Counts        Counts
	LastEvent     int
	HasLastEvent  bool
	LastEventTime time.Time
	SinkConnected bool
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Counts:    Counts{PerLine: make(map[int]int)},
		},
	}
}

// RecordEvent counts an event read by the polling loop and whether the
// sink took it.
func (t *Tracker) RecordEvent(id int, at time.Time, forwarded bool) {
	t.mu.Lock()
	t.snap.Counts.Accepted++
	t.snap.Counts.PerLine[id]++
	if forwarded {
		t.snap.Counts.Forwarded++
	} else {
		t.snap.Counts.Dropped++
	}
	t.snap.LastEvent = id
	t.snap.HasLastEvent = true
	t.snap.LastEventTime = at
	t.mu.Unlock()
}

// SetSinkConnected sets the output sink connection status.
func (t *Tracker) SetSinkConnected(connected bool) {
	t.mu.Lock()
	t.snap.SinkConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	perLine := make(map[int]int, len(t.snap.Counts.PerLine))
	for k, v := range t.snap.Counts.PerLine {
		perLine[k] = v
	}
	lines := append([]Line(nil), t.snap.Config.Lines...)
	t.mu.RUnlock()

	s.Counts.PerLine = perLine
	s.Config.Lines = lines
	s.Now = time.Now()
	return s
}
