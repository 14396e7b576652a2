//go:build !linux

package gpio

import "errors"

// ChipSource is not available on non-Linux platforms.
type ChipSource struct{}

// NewChipSource returns an error on non-Linux platforms.
func NewChipSource(chip string, edge Edge, pull Pull) (*ChipSource, error) {
	return nil, errors.New("gpio: chip source not supported on this platform (requires Linux)")
}

// Watch is not implemented on non-Linux platforms.
func (s *ChipSource) Watch(line Line, onEdge func()) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *ChipSource) Close() error {
	return nil
}
