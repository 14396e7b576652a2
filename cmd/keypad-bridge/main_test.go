package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/keypad-bridge/internal/config"
	"github.com/sweeney/keypad-bridge/internal/latch"
	"github.com/sweeney/keypad-bridge/internal/mqtt"
	"github.com/sweeney/keypad-bridge/internal/output"
	"github.com/sweeney/keypad-bridge/internal/status"
)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type loopHarness struct {
	events  *latch.Latch
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	tick    chan time.Time
	sig     chan os.Signal
	errCh   chan error
}

func startLoop(t *testing.T, heartbeat time.Duration, step time.Duration) *loopHarness {
	t.Helper()
	h := &loopHarness{
		events:  latch.New(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{}),
		tick:    make(chan time.Time),
		sig:     make(chan os.Signal, 1),
		errCh:   make(chan error, 1),
	}
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step)
	go func() {
		h.errCh <- runLoop(h.events, h.pub, h.pub, h.tracker, heartbeat, clock, h.tick, h.sig)
	}()
	return h
}

// ticks sends n ticks and waits until the loop has taken the last one.
func (h *loopHarness) ticks(n int) {
	for i := 0; i < n; i++ {
		h.tick <- time.Time{}
	}
}

// stop sends a signal and waits for runLoop to return. Every tick sent
// before has been fully processed once this returns.
func (h *loopHarness) stop(t *testing.T, s os.Signal) {
	t.Helper()
	h.sig <- s
	require.NoError(t, <-h.errCh)
}

func TestRunLoopForwardsPress(t *testing.T) {
	h := startLoop(t, 0, 5*time.Millisecond)

	h.events.Set(12)
	h.ticks(3)
	h.stop(t, syscall.SIGTERM)

	assert.Equal(t, []string{"12"}, h.pub.SentTexts())
	snap := h.tracker.Snapshot()
	assert.Equal(t, 1, snap.Counts.Accepted)
	assert.Equal(t, 1, snap.Counts.Forwarded)
	assert.Equal(t, 12, snap.LastEvent)
}

func TestRunLoopIdleTicksSendNothing(t *testing.T) {
	h := startLoop(t, 0, 5*time.Millisecond)
	h.ticks(10)
	h.stop(t, syscall.SIGTERM)

	assert.Empty(t, h.pub.SentTexts())
	assert.Equal(t, []string{"SHUTDOWN"}, h.pub.SystemEventNames())
}

func TestRunLoopDisconnectedSinkDropsEvent(t *testing.T) {
	h := startLoop(t, 0, 5*time.Millisecond)
	h.pub.SetConnected(false)

	h.events.Set(13)
	h.ticks(2)
	h.stop(t, syscall.SIGINT)

	assert.Empty(t, h.pub.SentTexts())
	snap := h.tracker.Snapshot()
	assert.Equal(t, 1, snap.Counts.Dropped)
	assert.False(t, snap.SinkConnected)

	// nothing left in the latch to retry
	_, ok := h.events.ReadAndAdvance()
	assert.False(t, ok)
}

func TestRunLoopSendErrorKeepsRunning(t *testing.T) {
	h := startLoop(t, 0, 5*time.Millisecond)
	h.pub.SendError = errors.New("transmit failed")
	h.events.Set(12)
	h.ticks(2)
	h.stop(t, syscall.SIGTERM)

	assert.Equal(t, 1, h.tracker.Snapshot().Counts.Dropped)
	assert.Equal(t, []string{"SHUTDOWN"}, h.pub.SystemEventNames())
}

func TestRunLoopShutdownEvent(t *testing.T) {
	h := startLoop(t, 0, 5*time.Millisecond)
	h.stop(t, syscall.SIGINT)

	require.Len(t, h.pub.SystemEvents, 1)
	ev := h.pub.SystemEvents[0]
	assert.Equal(t, "SHUTDOWN", ev.Event)
	assert.Equal(t, "SIGINT", ev.Reason)
	assert.True(t, ev.Retained)

	var parsed status.StatusJSON
	require.NoError(t, json.Unmarshal(ev.RawPayload, &parsed))
	assert.Equal(t, "SHUTDOWN", parsed.Status.Event)
	assert.Equal(t, "SIGINT", parsed.Status.Reason)
}

func TestRunLoopShutdownPublishErrorStillReturns(t *testing.T) {
	h := startLoop(t, 0, 5*time.Millisecond)
	h.pub.PublishSystemError = errors.New("broker gone")
	h.stop(t, syscall.SIGTERM)
}

func TestRunLoopHeartbeat(t *testing.T) {
	// clock calls: t0 at start, then one per tick at +1m each
	h := startLoop(t, 3*time.Minute, time.Minute)
	h.ticks(7)
	h.stop(t, syscall.SIGTERM)

	// ticks at 1m..7m; heartbeats at 3m and 6m
	assert.Equal(t, []string{"HEARTBEAT", "HEARTBEAT", "SHUTDOWN"}, h.pub.SystemEventNames())
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	h := startLoop(t, 0, time.Hour)
	h.ticks(5)
	h.stop(t, syscall.SIGTERM)

	assert.Equal(t, []string{"SHUTDOWN"}, h.pub.SystemEventNames())
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, "UNKNOWN", signalName(syscall.SIGHUP))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keypad-bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCheck(t *testing.T) {
	path := writeConfig(t, "mqtt:\n  broker: tcp://localhost:1883\nlines:\n  - pin: 12\n  - pin: 13\n    id: 2\n")

	var out bytes.Buffer
	require.NoError(t, check(&out, path))
	assert.Equal(t,
		"backend: gpiocdev, edge: falling, pull: up, debounce: 200ms, poll: 5ms\n"+
			"sink: tcp://localhost:1883 (keypad/bridge/events)\n"+
			"line 12: GPIO12\n"+
			"line 2: GPIO13\n",
		out.String())
}

func TestCheckInvalidConfig(t *testing.T) {
	path := writeConfig(t, "lines: []\n")
	assert.Error(t, check(&bytes.Buffer{}, path))
}

func TestOpenSinkWithoutBroker(t *testing.T) {
	cfg, err := config.Parse([]byte("lines:\n  - pin: 12\n"))
	require.NoError(t, err)

	sink, sys := openSink(cfg)
	assert.IsType(t, output.LogSink{}, sink)
	assert.IsType(t, logSystem{}, sys)
	assert.NoError(t, sys.PublishSystem(mqtt.SystemEvent{Event: "STARTUP"}))
}

func TestStatusConfig(t *testing.T) {
	cfg, err := config.Parse([]byte("heartbeat: 1m\nhttp: \":8080\"\nlines:\n  - pin: 12\n  - pin: 13\n    id: 2\n"))
	require.NoError(t, err)

	sc := statusConfig(cfg)
	assert.Equal(t, "gpiocdev", sc.Backend)
	assert.Equal(t, int64(5), sc.PollMs)
	assert.Equal(t, int64(200), sc.DebounceMs)
	assert.Equal(t, int64(60000), sc.HeartbeatMs)
	assert.Equal(t, ":8080", sc.HTTPAddr)
	assert.Equal(t, []status.Line{{ID: 12, Pin: 12}, {ID: 2, Pin: 13}}, sc.Lines)
}

func TestShowVersion(t *testing.T) {
	var out bytes.Buffer
	showVersion(&out)
	assert.Equal(t, "dev (built: unknown)\n", out.String())
}
