// Package gpio provides button input lines with hardware abstraction.
// ChipSource uses the Linux GPIO character device, PeriphSource uses
// periph.io, and FakeSource allows testing without hardware.
package gpio

import "fmt"

// Line pairs a logical line id with the pin it is wired to.
type Line struct {
	ID  int
	Pin int // BCM numbering / gpiochip offset
}

// Source delivers edge notifications for watched lines.
type Source interface {
	// Watch configures the line as an input and calls onEdge on every
	// qualifying edge. onEdge runs on a goroutine owned by the source and
	// must return quickly.
	Watch(line Line, onEdge func()) error

	// Close releases all watched lines.
	Close() error
}

// Edge selects which transitions raise a notification.
type Edge string

const (
	EdgeFalling Edge = "falling"
	EdgeRising  Edge = "rising"
	EdgeBoth    Edge = "both"
)

// Pull selects the input bias.
type Pull string

const (
	PullUp   Pull = "up"
	PullDown Pull = "down"
	PullNone Pull = "none"
)

// ParseEdge validates an edge name. Empty selects EdgeFalling, which is a
// press on a button wired to ground with a pull-up.
func ParseEdge(s string) (Edge, error) {
	switch Edge(s) {
	case "":
		return EdgeFalling, nil
	case EdgeFalling, EdgeRising, EdgeBoth:
		return Edge(s), nil
	}
	return "", fmt.Errorf("unknown edge %q", s)
}

// ParsePull validates a pull name. Empty selects PullUp.
func ParsePull(s string) (Pull, error) {
	switch Pull(s) {
	case "":
		return PullUp, nil
	case PullUp, PullDown, PullNone:
		return Pull(s), nil
	}
	return "", fmt.Errorf("unknown pull %q", s)
}
