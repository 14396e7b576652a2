// Package config loads the keypad-bridge YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/keypad-bridge/internal/debounce"
	"github.com/sweeney/keypad-bridge/internal/gpio"
	"github.com/sweeney/keypad-bridge/internal/mqtt"
)

// DefaultPath is where the daemon looks for its config.
const DefaultPath = "/etc/keypad-bridge.yaml"

// Input backends.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendPeriph   = "periph"
)

const (
	defaultChip = "gpiochip0"
	defaultPoll = 5 * time.Millisecond
)

// Config is the daemon configuration.
type Config struct {
	Backend   string        `yaml:"backend"`
	Chip      string        `yaml:"chip"`
	Edge      gpio.Edge     `yaml:"edge"`
	Pull      gpio.Pull     `yaml:"pull"`
	Debounce  time.Duration `yaml:"debounce"`
	Poll      time.Duration `yaml:"poll"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	HTTP      string        `yaml:"http"`
	MQTT      struct {
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"clientId"`
		TopicPrefix string `yaml:"topicPrefix"`
	} `yaml:"mqtt"`
	Lines []LineConfig `yaml:"lines"`
}

// LineConfig is one button. ID defaults to the pin number.
type LineConfig struct {
	Pin int  `yaml:"pin"`
	ID  *int `yaml:"id"`
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML content, applies defaults and validates the result.
func Parse(content []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(content, c); err != nil {
		return nil, err
	}

	switch c.Backend {
	case "":
		c.Backend = BackendGPIOCDev
	case BackendGPIOCDev, BackendPeriph:
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Chip == "" {
		c.Chip = defaultChip
	}

	edge, err := gpio.ParseEdge(string(c.Edge))
	if err != nil {
		return nil, err
	}
	c.Edge = edge
	pull, err := gpio.ParsePull(string(c.Pull))
	if err != nil {
		return nil, err
	}
	c.Pull = pull

	if c.Debounce < 0 {
		return nil, fmt.Errorf("debounce must be positive, got %v", c.Debounce)
	}
	if c.Debounce == 0 {
		c.Debounce = debounce.DefaultWindow
	}
	if c.Poll < 0 {
		return nil, fmt.Errorf("poll must be positive, got %v", c.Poll)
	}
	if c.Poll == 0 {
		c.Poll = defaultPoll
	}
	if c.Heartbeat < 0 {
		return nil, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = mqtt.DefaultTopicPrefix
	}

	if len(c.Lines) == 0 {
		return nil, fmt.Errorf("at least one line must be configured")
	}
	ids := make(map[int]int)
	pins := make(map[int]int)
	for i, l := range c.Lines {
		if l.Pin < 0 {
			return nil, fmt.Errorf("pin of line must not be negative for entry %d", i)
		}
		if j, ok := pins[l.Pin]; ok {
			return nil, fmt.Errorf("pin %d used by entries %d and %d", l.Pin, j, i)
		}
		pins[l.Pin] = i

		id := l.Pin
		if l.ID != nil {
			id = *l.ID
		}
		if j, ok := ids[id]; ok {
			return nil, fmt.Errorf("line id %d used by entries %d and %d", id, j, i)
		}
		ids[id] = i
	}

	return c, nil
}

// GPIOLines returns the configured lines with ids resolved.
func (c *Config) GPIOLines() []gpio.Line {
	lines := make([]gpio.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		id := l.Pin
		if l.ID != nil {
			id = *l.ID
		}
		lines = append(lines, gpio.Line{ID: id, Pin: l.Pin})
	}
	return lines
}
