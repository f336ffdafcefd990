// Package config holds the configuration types for the relay server and the
// headless client.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	Relay  RelayConfig  `yaml:"relay"`
	Client ClientConfig `yaml:"client"`
}

// RelayConfig configures the relay server.
type RelayConfig struct {
	Listen        string `yaml:"listen"`         // listen address, e.g. ":8380"
	WSPath        string `yaml:"ws_path"`        // WebSocket endpoint path
	TelemetryPath string `yaml:"telemetry_path"` // Prometheus metrics path
	MaxPerRoom    int    `yaml:"max_per_room"`   // 0 means unlimited
}

// ClientConfig configures the headless client.
type ClientConfig struct {
	URL  string `yaml:"url"`  // relay WebSocket URL
	Name string `yaml:"name"` // display name
	Room string `yaml:"room"`
}

// SetDefaults fills unset fields with working defaults.
func (c *Config) SetDefaults() {
	if c.Relay.Listen == "" {
		c.Relay.Listen = ":8380"
	}
	if c.Relay.WSPath == "" {
		c.Relay.WSPath = "/ws"
	}
	if c.Relay.TelemetryPath == "" {
		c.Relay.TelemetryPath = "/metrics"
	}
	if c.Client.Room == "" {
		c.Client.Room = "default"
	}
}

// Load reads a YAML configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}
