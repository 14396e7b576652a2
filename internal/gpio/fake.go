package gpio

import (
	"fmt"
	"sync"
)

// FakeSource is a test double that lets tests fire edges by pin.
type FakeSource struct {
	mu       sync.Mutex
	handlers map[int]func()

	// Lines contains every line passed to Watch, in order.
	Lines []Line

	// WatchError, if set, is returned by Watch for the pin it names.
	WatchError map[int]error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{handlers: make(map[int]func())}
}

// Watch records the line and its handler.
func (f *FakeSource) Watch(line Line, onEdge func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.WatchError[line.Pin]; err != nil {
		return err
	}
	if _, ok := f.handlers[line.Pin]; ok {
		return fmt.Errorf("pin %d already watched", line.Pin)
	}
	f.handlers[line.Pin] = onEdge
	f.Lines = append(f.Lines, line)
	return nil
}

// Fire calls the handler of the given pin n times, as a bouncing contact
// would. It reports false if the pin is not watched.
func (f *FakeSource) Fire(pin, n int) bool {
	f.mu.Lock()
	h, ok := f.handlers[pin]
	f.mu.Unlock()
	if !ok {
		return false
	}
	for i := 0; i < n; i++ {
		h()
	}
	return true
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
