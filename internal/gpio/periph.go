package gpio

import (
	"fmt"
	"sync"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePollTimeout bounds each WaitForEdge call so Close is noticed.
const edgePollTimeout = 250 * time.Millisecond

// PeriphSource watches lines through periph.io. Each line gets a goroutine
// blocked in WaitForEdge.
type PeriphSource struct {
	lookup func(name string) pgpio.PinIO
	edge   Edge
	pull   Pull

	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	pins   []pgpio.PinIO
	closed bool
}

// NewPeriphSource initializes the periph.io host drivers.
func NewPeriphSource(edge Edge, pull Pull) (*PeriphSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	return newPeriphSource(gpioreg.ByName, edge, pull), nil
}

func newPeriphSource(lookup func(string) pgpio.PinIO, edge Edge, pull Pull) *PeriphSource {
	return &PeriphSource{
		lookup: lookup,
		edge:   edge,
		pull:   pull,
		done:   make(chan struct{}),
	}
}

// PinName returns the periph.io name of a BCM pin.
func PinName(pin int) string {
	return fmt.Sprintf("GPIO%d", pin)
}

// Watch configures the pin and starts its edge goroutine.
func (s *PeriphSource) Watch(line Line, onEdge func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("watch line %d: source closed", line.ID)
	}

	p := s.lookup(PinName(line.Pin))
	if p == nil {
		return fmt.Errorf("watch line %d: no pin %s", line.ID, PinName(line.Pin))
	}
	if err := p.In(periphPull(s.pull), periphEdge(s.edge)); err != nil {
		return fmt.Errorf("configure line %d pin %s: %w", line.ID, p.Name(), err)
	}

	s.pins = append(s.pins, p)
	s.wg.Add(1)
	go s.wait(p, onEdge)
	return nil
}

func (s *PeriphSource) wait(p pgpio.PinIO, onEdge func()) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}
		if p.WaitForEdge(edgePollTimeout) {
			onEdge()
		}
	}
}

// Close stops the edge goroutines and halts the pins.
func (s *PeriphSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	pins := s.pins
	s.pins = nil
	s.mu.Unlock()

	s.wg.Wait()

	var errs []error
	for _, p := range pins {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", p.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func periphEdge(e Edge) pgpio.Edge {
	switch e {
	case EdgeRising:
		return pgpio.RisingEdge
	case EdgeBoth:
		return pgpio.BothEdges
	default:
		return pgpio.FallingEdge
	}
}

func periphPull(p Pull) pgpio.Pull {
	switch p {
	case PullUp:
		return pgpio.PullUp
	case PullDown:
		return pgpio.PullDown
	default:
		return pgpio.Float
	}
}
