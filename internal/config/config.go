// Package config provides YAML-based server configuration loading for
// wirechat.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds everything the chat server needs at startup.
type ServerConfig struct {
	// Listen is the TCP address clients connect to.
	Listen string `yaml:"listen"`

	// WSListen enables the WebSocket bridge when non-empty.
	WSListen string `yaml:"ws_listen"`

	// TickInterval is how often the dispatch loop runs.
	TickInterval Duration `yaml:"tick_interval"`

	// HandshakeTimeout is how long a client may stay nameless before
	// being dropped.
	HandshakeTimeout Duration `yaml:"handshake_timeout"`

	// ActivityTimeout is the idle time after which a client is pinged.
	ActivityTimeout Duration `yaml:"activity_timeout"`

	// RecallLimit caps how many broadcast messages are kept for replay
	// to new joiners. Zero disables recall.
	RecallLimit int `yaml:"recall_limit"`

	// MOTD is sent to every client after its handshake, if set.
	MOTD string `yaml:"motd"`
}

// Duration is a time.Duration that unmarshals from strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Normalize replaces unusable values with defaults so a partial config
// file cannot produce a server that spins or never times anyone out.
func (c *Config) Normalize() {
	def := Default().Server
	s := &c.Server
	if s.Listen == "" {
		s.Listen = def.Listen
	}
	if s.TickInterval <= 0 {
		s.TickInterval = def.TickInterval
	}
	if s.HandshakeTimeout <= 0 {
		s.HandshakeTimeout = def.HandshakeTimeout
	}
	if s.ActivityTimeout <= 0 {
		s.ActivityTimeout = def.ActivityTimeout
	}
	if s.RecallLimit < 0 {
		s.RecallLimit = 0
	}
}
