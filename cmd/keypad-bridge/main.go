// Command keypad-bridge watches button GPIO lines and forwards each debounced
// press to MQTT (or the log) as the button's decimal id.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/sweeney/keypad-bridge/internal/config"
	"github.com/sweeney/keypad-bridge/internal/debounce"
	"github.com/sweeney/keypad-bridge/internal/gpio"
	"github.com/sweeney/keypad-bridge/internal/keypad"
	"github.com/sweeney/keypad-bridge/internal/latch"
	"github.com/sweeney/keypad-bridge/internal/mqtt"
	"github.com/sweeney/keypad-bridge/internal/output"
	"github.com/sweeney/keypad-bridge/internal/status"
	"github.com/sweeney/keypad-bridge/internal/web"
)

func main() {
	app := kingpin.New("keypad-bridge", "Forwards debounced button presses to MQTT.")
	configPath := app.Flag("config", "Path to the YAML config file.").Short('c').Default(config.DefaultPath).String()
	debug := app.Flag("debug", "Turn on debug logging.").Bool()

	runCmd := app.Command("run", "Run the bridge.").Default()
	checkCmd := app.Command("check", "Validate the config and print the configured lines.")
	versionCmd := app.Command("version", "Print the version.")

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	var err error
	switch cmd {
	case runCmd.FullCommand():
		err = run(*configPath)
	case checkCmd.FullCommand():
		err = check(os.Stdout, *configPath)
	case versionCmd.FullCommand():
		showVersion(os.Stdout)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	src, err := openSource(cfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer src.Close()

	events := latch.New()
	deb, err := debounce.New(debounce.RealClock{}, cfg.Debounce, events.Set)
	if err != nil {
		return err
	}
	defer deb.Stop()

	if err := keypad.Register(src, deb, cfg.GPIOLines()); err != nil {
		return fmt.Errorf("register lines: %w", err)
	}

	sink, sys := openSink(cfg)
	defer sys.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	tracker.SetSinkConnected(sink.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := sys.PublishSystem(startup); err != nil {
		log.Warnf("failed to publish startup event: %v", err)
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.HTTP)
	}

	log.WithFields(log.Fields{
		"backend":  cfg.Backend,
		"lines":    len(cfg.Lines),
		"debounce": cfg.Debounce,
		"poll":     cfg.Poll,
		"broker":   cfg.MQTT.Broker,
	}).Info("starting loop")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(events, sink, sys, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// runLoop polls the latch on every tick and forwards new events. It only
// returns on a shutdown signal; sink failures are logged and the event is
// dropped.
func runLoop(events *latch.Latch, sink output.Sink, sys mqtt.SystemPublisher, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Infof("received %v, shutting down", s)
			tracker.SetSinkConnected(sink.IsConnected())
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     name,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", name),
			}
			if err := sys.PublishSystem(event); err != nil {
				log.Warnf("failed to publish shutdown event: %v", err)
			}
			return nil

		case <-tick:
			t := now()

			if id, ok := events.ReadAndAdvance(); ok {
				log.Infof("button %d pressed", id)
				err := output.Forward(sink, id)
				if err != nil {
					log.Warnf("dropped button %d: %v", id, err)
				}
				tracker.RecordEvent(int(id), t, err == nil)
			}
			tracker.SetSinkConnected(sink.IsConnected())

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				snap := tracker.Snapshot()
				log.Debugf("heartbeat: uptime=%v accepted=%d dropped=%d", snap.Uptime(), snap.Counts.Accepted, snap.Counts.Dropped)
				hb := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := sys.PublishSystem(hb); err != nil {
					log.Warnf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func openSource(cfg *config.Config) (gpio.Source, error) {
	if cfg.Backend == config.BackendPeriph {
		return gpio.NewPeriphSource(cfg.Edge, cfg.Pull)
	}
	return gpio.NewChipSource(cfg.Chip, cfg.Edge, cfg.Pull)
}

// openSink picks the MQTT publisher when a broker is configured, the log
// otherwise.
func openSink(cfg *config.Config) (output.Sink, mqtt.SystemPublisher) {
	if cfg.MQTT.Broker == "" {
		return output.LogSink{}, logSystem{}
	}
	p := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	})
	return p, p
}

// logSystem logs lifecycle events when there is no broker.
type logSystem struct{}

func (logSystem) PublishSystem(event mqtt.SystemEvent) error {
	log.WithField("reason", event.Reason).Infof("system event %s", event.Event)
	return nil
}

func (logSystem) Close() error { return nil }

func statusConfig(cfg *config.Config) status.Config {
	lines := make([]status.Line, 0, len(cfg.Lines))
	for _, l := range cfg.GPIOLines() {
		lines = append(lines, status.Line{ID: l.ID, Pin: l.Pin})
	}
	return status.Config{
		Backend:     cfg.Backend,
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP,
		Lines:       lines,
	}
}

func check(w io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sink := "log"
	if cfg.MQTT.Broker != "" {
		sink = fmt.Sprintf("%s (%s)", cfg.MQTT.Broker, mqtt.EventsTopic(cfg.MQTT.TopicPrefix))
	}
	fmt.Fprintf(w, "backend: %s, edge: %s, pull: %s, debounce: %v, poll: %v\n", cfg.Backend, cfg.Edge, cfg.Pull, cfg.Debounce, cfg.Poll)
	fmt.Fprintf(w, "sink: %s\n", sink)
	for _, l := range cfg.GPIOLines() {
		fmt.Fprintf(w, "line %d: %s\n", l.ID, gpio.PinName(l.Pin))
	}
	return nil
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
