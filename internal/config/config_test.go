package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/keypad-bridge/internal/gpio"
)

const fullConfig = `
backend: periph
chip: gpiochip4
edge: both
pull: down
debounce: 50ms
poll: 2ms
heartbeat: 15m
http: ":8080"
mqtt:
  broker: tcp://192.168.1.200:1883
  clientId: desk-keys
  topicPrefix: home/desk
lines:
  - pin: 12
  - pin: 13
    id: 2
`

func TestParseFull(t *testing.T) {
	c, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, BackendPeriph, c.Backend)
	assert.Equal(t, "gpiochip4", c.Chip)
	assert.Equal(t, gpio.EdgeBoth, c.Edge)
	assert.Equal(t, gpio.PullDown, c.Pull)
	assert.Equal(t, 50*time.Millisecond, c.Debounce)
	assert.Equal(t, 2*time.Millisecond, c.Poll)
	assert.Equal(t, 15*time.Minute, c.Heartbeat)
	assert.Equal(t, ":8080", c.HTTP)
	assert.Equal(t, "tcp://192.168.1.200:1883", c.MQTT.Broker)
	assert.Equal(t, "desk-keys", c.MQTT.ClientID)
	assert.Equal(t, "home/desk", c.MQTT.TopicPrefix)
	assert.Equal(t, []gpio.Line{{ID: 12, Pin: 12}, {ID: 2, Pin: 13}}, c.GPIOLines())
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("lines:\n  - pin: 12\n  - pin: 13\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendGPIOCDev, c.Backend)
	assert.Equal(t, "gpiochip0", c.Chip)
	assert.Equal(t, gpio.EdgeFalling, c.Edge)
	assert.Equal(t, gpio.PullUp, c.Pull)
	assert.Equal(t, 200*time.Millisecond, c.Debounce)
	assert.Equal(t, 5*time.Millisecond, c.Poll)
	assert.Equal(t, time.Duration(0), c.Heartbeat)
	assert.Empty(t, c.HTTP)
	assert.Empty(t, c.MQTT.Broker)
	assert.Equal(t, "keypad/bridge", c.MQTT.TopicPrefix)
	assert.Equal(t, []gpio.Line{{ID: 12, Pin: 12}, {ID: 13, Pin: 13}}, c.GPIOLines())
}

func TestParseErrors(t *testing.T) {
	tt := []struct {
		name    string
		content string
	}{
		{"no lines", "debounce: 10ms\n"},
		{"bad yaml", "lines: [\n"},
		{"unknown backend", "backend: wiringpi\nlines:\n  - pin: 1\n"},
		{"unknown edge", "edge: low\nlines:\n  - pin: 1\n"},
		{"unknown pull", "pull: sideways\nlines:\n  - pin: 1\n"},
		{"negative debounce", "debounce: -1ms\nlines:\n  - pin: 1\n"},
		{"negative poll", "poll: -1ms\nlines:\n  - pin: 1\n"},
		{"negative heartbeat", "heartbeat: -1s\nlines:\n  - pin: 1\n"},
		{"negative pin", "lines:\n  - pin: -1\n"},
		{"duplicate pin", "lines:\n  - pin: 1\n  - pin: 1\n    id: 2\n"},
		{"duplicate id", "lines:\n  - pin: 1\n  - pin: 2\n    id: 1\n"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keypad-bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadInvalidNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lines: []\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
