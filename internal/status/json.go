package status

import (
	"encoding/json"
	"strconv"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	LastEvent     *int       `json:"last_event"`
	LastEventTime string     `json:"last_event_time,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	Sink          SinkStatus `json:"sink"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// SinkStatus reports output sink state.
type SinkStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Accepted  int            `json:"accepted"`
	Forwarded int            `json:"forwarded"`
	Dropped   int            `json:"dropped"`
	PerLine   map[string]int `json:"per_line"`
}

// LineJSON is the JSON representation of a configured line.
type LineJSON struct {
	ID  int `json:"id"`
	Pin int `json:"pin"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend     string     `json:"backend"`
	PollMs      int64      `json:"poll_ms"`
	DebounceMs  int64      `json:"debounce_ms"`
	HeartbeatMs int64      `json:"heartbeat_ms"`
	Broker      string     `json:"broker,omitempty"`
	HTTPAddr    string     `json:"http_addr,omitempty"`
	Lines       []LineJSON `json:"lines"`
}

func buildInner(snap Snapshot) StatusInner {
	perLine := make(map[string]int, len(snap.Counts.PerLine))
	for id, n := range snap.Counts.PerLine {
		perLine[strconv.Itoa(id)] = n
	}
	lines := make([]LineJSON, 0, len(snap.Config.Lines))
	for _, l := range snap.Config.Lines {
		lines = append(lines, LineJSON{ID: l.ID, Pin: l.Pin})
	}

	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Sink:          SinkStatus{Connected: snap.SinkConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Accepted:  snap.Counts.Accepted,
			Forwarded: snap.Counts.Forwarded,
			Dropped:   snap.Counts.Dropped,
			PerLine:   perLine,
		},
		Config: ConfigJSON{
			Backend:     snap.Config.Backend,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Lines:       lines,
		},
	}
	if snap.HasLastEvent {
		id := snap.LastEvent
		inner.LastEvent = &id
		inner.LastEventTime = snap.LastEventTime.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
