package appconfig

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	Endpoint      string         `mapstructure:"endpoint" yaml:"endpoint"`
	Username      string         `mapstructure:"username" yaml:"username"`
	Password      string         `mapstructure:"password" yaml:"password"`
	TOTPSecret    string         `mapstructure:"totp_secret" yaml:"totp_secret"`
	SSH           SSHConfig      `mapstructure:"ssh" yaml:"ssh"`
	Display       DisplayConfig  `mapstructure:"display" yaml:"display"`
	Queues        QueuesConfig   `mapstructure:"queues" yaml:"queues"`
	Terminal      TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Relay         RelayConfig    `mapstructure:"relay" yaml:"relay"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// SSHConfig configures the SSH client.
type SSHConfig struct {
	Term               string `mapstructure:"term" yaml:"term"`
	KnownHosts         string `mapstructure:"known_hosts" yaml:"known_hosts"`
	DialTimeoutSeconds int    `mapstructure:"dial_timeout_seconds" yaml:"dial_timeout_seconds"`
}

// DialTimeout returns the configured connect timeout.
func (c SSHConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSeconds) * time.Second
}

// DisplayConfig sizes the framebuffer and paces presentation.
type DisplayConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
	// RefreshMillihertz of 0 asks the presentation sink.
	RefreshMillihertz uint32 `mapstructure:"refresh_millihertz" yaml:"refresh_millihertz"`
}

// QueuesConfig bounds the input and outbound queues.
type QueuesConfig struct {
	InputDepth    int `mapstructure:"input_depth" yaml:"input_depth"`
	OutboundDepth int `mapstructure:"outbound_depth" yaml:"outbound_depth"`
}

// TerminalConfig tunes the terminal engine.
type TerminalConfig struct {
	HistoryLines int `mapstructure:"history_lines" yaml:"history_lines"`
	ScrollSpeed  int `mapstructure:"scroll_speed" yaml:"scroll_speed"`
}

// RelayConfig configures the WebSocket relay server.
type RelayConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		SSH: SSHConfig{
			Term:               "xterm-256color",
			KnownHosts:         "",
			DialTimeoutSeconds: 10,
		},
		Display: DisplayConfig{
			Width:             1024,
			Height:            768,
			RefreshMillihertz: 0,
		},
		Queues: QueuesConfig{
			InputDepth:    1024,
			OutboundDepth: 1024,
		},
		Terminal: TerminalConfig{
			HistoryLines: 1000,
			ScrollSpeed:  5,
		},
		Relay: RelayConfig{
			Addr: "0.0.0.0:19198",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pixterm", "config.yaml"), nil
}
