//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// ChipSource watches lines on a Linux GPIO character device.
type ChipSource struct {
	chip *gpiocdev.Chip
	edge Edge
	pull Pull

	mu    sync.Mutex
	lines []*gpiocdev.Line
}

// NewChipSource opens the named chip (e.g. "gpiochip0").
func NewChipSource(chip string, edge Edge, pull Pull) (*ChipSource, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &ChipSource{chip: c, edge: edge, pull: pull}, nil
}

// Watch requests the line as an input with edge detection. gpiocdev calls
// the handler from its event goroutine.
func (s *ChipSource) Watch(line Line, onEdge func()) error {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		chipEdge(s.edge),
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onEdge() }),
		chipBias(s.pull),
	}

	l, err := s.chip.RequestLine(line.Pin, opts...)
	if err != nil {
		return fmt.Errorf("request line %d pin %d: %w", line.ID, line.Pin, err)
	}

	s.mu.Lock()
	s.lines = append(s.lines, l)
	s.mu.Unlock()
	return nil
}

// Close releases lines and the chip. Lines are reconfigured to plain inputs
// with pull-down (the Pi boot default) before release.
func (s *ChipSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, l := range s.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", l.Offset(), err))
		}
	}
	s.lines = nil

	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		s.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func chipEdge(e Edge) gpiocdev.LineReqOption {
	switch e {
	case EdgeRising:
		return gpiocdev.WithRisingEdge
	case EdgeBoth:
		return gpiocdev.WithBothEdges
	default:
		return gpiocdev.WithFallingEdge
	}
}

func chipBias(p Pull) gpiocdev.LineReqOption {
	switch p {
	case PullUp:
		return gpiocdev.WithPullUp
	case PullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}
