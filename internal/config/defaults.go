package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/server.yaml
var defaultServerYAML []byte

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:           ":7667",
			WSListen:         "",
			TickInterval:     Duration(50 * time.Millisecond),
			HandshakeTimeout: Duration(30 * time.Second),
			ActivityTimeout:  Duration(2 * time.Minute),
			RecallLimit:      64,
			MOTD:             "",
		},
	}
}
