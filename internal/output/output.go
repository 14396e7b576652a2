// Package output defines where accepted button events are sent.
package output

import (
	"errors"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/keypad-bridge/internal/latch"
)

// ErrNotConnected is returned when an event is dropped because the sink
// was not connected.
var ErrNotConnected = errors.New("sink not connected")

// Sink consumes rendered button events. Send is only called from the
// polling loop. A sink that disconnects between IsConnected and Send must
// return an error, not panic.
type Sink interface {
	IsConnected() bool
	Send(text string) error
}

// Render returns the text sent for a line: its decimal id.
func Render(id latch.LineID) string {
	return strconv.Itoa(int(id))
}

// Forward sends id to the sink if it is connected. Events are never queued:
// a disconnected sink drops the event with ErrNotConnected.
func Forward(s Sink, id latch.LineID) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	return s.Send(Render(id))
}

// LogSink writes events to the log. It is used when no broker is configured.
type LogSink struct {
	Logger log.FieldLogger
}

// IsConnected is always true.
func (LogSink) IsConnected() bool {
	return true
}

// Send logs the text.
func (s LogSink) Send(text string) error {
	logger := s.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.WithField("key", text).Info("key sent")
	return nil
}
