// Package debounce turns raw edge notifications into confirmed events.
//
// Each line owns a one-shot timer. An edge (re)starts the timer; when the
// line stays quiet for the whole window the timer fires and the line id is
// handed to the fire callback. An edge that arrives while the timer is
// pending restarts the window, so a burst of bounces yields one event.
package debounce

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/keypad-bridge/internal/latch"
)

// DefaultWindow is used when no window is configured.
const DefaultWindow = 200 * time.Millisecond

const idle = time.Duration(math.MaxInt64)

var (
	// ErrWindow is returned for a non-positive debounce window.
	ErrWindow = errors.New("debounce window must be positive")
	// ErrDuplicateLine is returned when a line id is added twice.
	ErrDuplicateLine = errors.New("line already added")
)

// Timer is a one-shot timer created by a Clock.
type Timer interface {
	// Reset (re)schedules the timer to fire after d.
	// Returns true if the timer was pending.
	Reset(d time.Duration) bool
	// Stop cancels the timer. Returns true if it was pending.
	Stop() bool
}

// Clock creates timers. RealClock is used in production, FakeClock in tests.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock is a Clock backed by time.AfterFunc.
type RealClock struct{}

// AfterFunc wraps time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type line struct {
	mu    sync.Mutex
	id    latch.LineID
	timer Timer
}

// Debouncer owns the arming state of every registered line.
type Debouncer struct {
	clock   Clock
	window  time.Duration
	fire    func(latch.LineID)
	stopped atomic.Bool

	mu    sync.Mutex
	lines map[latch.LineID]*line
}

// New creates a Debouncer that calls fire once per confirmed edge.
func New(clock Clock, window time.Duration, fire func(latch.LineID)) (*Debouncer, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrWindow, window)
	}
	return &Debouncer{
		clock:  clock,
		window: window,
		fire:   fire,
		lines:  make(map[latch.LineID]*line),
	}, nil
}

// Window returns the configured debounce window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Add prepares the timer for a line and returns its edge handler.
// The handler does no allocation or logging and is safe to call from
// any goroutine.
func (d *Debouncer) Add(id latch.LineID) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.lines[id]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateLine, id)
	}

	l := &line{id: id}
	// Created idle; only an edge arms it.
	l.timer = d.clock.AfterFunc(idle, func() {
		if d.stopped.Load() {
			return
		}
		d.fire(l.id)
	})
	l.timer.Stop()
	d.lines[id] = l

	return func() { d.arm(l) }, nil
}

func (d *Debouncer) arm(l *line) {
	if d.stopped.Load() {
		return
	}
	l.mu.Lock()
	l.timer.Reset(d.window)
	l.mu.Unlock()
}

// Stop cancels every pending timer. Edges after Stop are ignored.
func (d *Debouncer) Stop() {
	d.stopped.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.lines {
		l.mu.Lock()
		l.timer.Stop()
		l.mu.Unlock()
	}
}
