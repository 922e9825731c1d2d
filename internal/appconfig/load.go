package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("endpoint", cfg.Endpoint)
	v.SetDefault("username", cfg.Username)
	v.SetDefault("password", cfg.Password)
	v.SetDefault("totp_secret", cfg.TOTPSecret)
	v.SetDefault("ssh.term", cfg.SSH.Term)
	v.SetDefault("ssh.known_hosts", cfg.SSH.KnownHosts)
	v.SetDefault("ssh.dial_timeout_seconds", cfg.SSH.DialTimeoutSeconds)
	v.SetDefault("display.width", cfg.Display.Width)
	v.SetDefault("display.height", cfg.Display.Height)
	v.SetDefault("display.refresh_millihertz", cfg.Display.RefreshMillihertz)
	v.SetDefault("queues.input_depth", cfg.Queues.InputDepth)
	v.SetDefault("queues.outbound_depth", cfg.Queues.OutboundDepth)
	v.SetDefault("terminal.history_lines", cfg.Terminal.HistoryLines)
	v.SetDefault("terminal.scroll_speed", cfg.Terminal.ScrollSpeed)
	v.SetDefault("relay.addr", cfg.Relay.Addr)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return err
	}
	if cfg.SSH.DialTimeoutSeconds <= 0 {
		return fmt.Errorf("ssh.dial_timeout_seconds must be positive")
	}
	if cfg.Display.Width <= 0 || cfg.Display.Height <= 0 {
		return fmt.Errorf("display.width and display.height must be positive")
	}
	if cfg.Queues.InputDepth <= 0 || cfg.Queues.OutboundDepth <= 0 {
		return fmt.Errorf("queues.input_depth and queues.outbound_depth must be positive")
	}
	if cfg.Terminal.HistoryLines < 0 {
		return fmt.Errorf("terminal.history_lines must not be negative")
	}
	return nil
}

func validateEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	lower := strings.ToLower(endpoint)
	if strings.HasPrefix(lower, "ws://") || strings.HasPrefix(lower, "wss://") {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("endpoint must be host:port or a ws:// or wss:// URL with a host")
		}
		return nil
	}
	if strings.Contains(endpoint, "://") {
		return fmt.Errorf("endpoint scheme must be ws or wss, got %q", endpoint)
	}
	return nil
}

// Merge overrides config values with non-empty flag values.
func (c *Config) Merge(endpoint, username, password string) {
	if endpoint != "" {
		c.Endpoint = endpoint
	}
	if username != "" {
		c.Username = username
	}
	if password != "" {
		c.Password = password
	}
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.SSH.KnownHosts = expandEnv(cfg.SSH.KnownHosts)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
