// Package keypad wires input lines to the event latch.
//
// For every configured line it creates one debounce arm and registers it
// as the line's edge handler:
//
//	edge -> Debouncer arm -> timer expiry -> Latch.Set(id)
package keypad

import (
	"fmt"

	"github.com/sweeney/keypad-bridge/internal/debounce"
	"github.com/sweeney/keypad-bridge/internal/gpio"
	"github.com/sweeney/keypad-bridge/internal/latch"
)

// Register watches every line on src. The first failure is returned and
// names the line; no line is skipped silently.
func Register(src gpio.Source, deb *debounce.Debouncer, lines []gpio.Line) error {
	for _, l := range lines {
		arm, err := deb.Add(latch.LineID(l.ID))
		if err != nil {
			return fmt.Errorf("line %d: %w", l.ID, err)
		}
		if err := src.Watch(l, arm); err != nil {
			return fmt.Errorf("watch line %d (pin %d): %w", l.ID, l.Pin, err)
		}
	}
	return nil
}
