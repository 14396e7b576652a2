package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/keypad-bridge/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Keypad Bridge</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Keypad Bridge</h1>

<h2>Last Event</h2>
<table>
{{if .HasLastEvent}}<tr><th>Button</th><td id="last-event">{{.LastEvent}}</td></tr>
<tr><th>At</th><td>{{.LastEventTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{else}}<tr><th>Button</th><td id="last-event">none</td></tr>{{end}}
</table>

<h2>Lines</h2>
<table>
<tr><th>Line</th><td>Pin / presses</td></tr>
{{range .Lines}}<tr><th>{{.ID}}</th><td>GPIO{{.Pin}} / {{.Presses}}</td></tr>
{{end}}</table>

<h2>Output</h2>
<table>
<tr><th>Sink</th><td class="{{if .SinkConnected}}connected{{else}}disconnected{{end}}">{{if .SinkConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}log{{end}}</td></tr>
<tr><th>Forwarded</th><td>{{.Counts.Forwarded}}</td></tr>
<tr><th>Dropped</th><td>{{.Counts.Dropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type lineRow struct {
	ID      int
	Pin     int
	Presses int
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	rows := make([]lineRow, 0, len(snap.Config.Lines))
	for _, l := range snap.Config.Lines {
		rows = append(rows, lineRow{ID: l.ID, Pin: l.Pin, Presses: snap.Counts.PerLine[l.ID]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Lines  []lineRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Lines:    rows,
	}
	return indexTmpl.Execute(w, data)
}
