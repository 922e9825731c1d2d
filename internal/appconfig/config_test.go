package appconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.SSH.Term != "xterm-256color" {
		t.Fatalf("unexpected term %q", cfg.SSH.Term)
	}
	if cfg.SSH.KnownHosts != "" {
		t.Fatalf("expected known_hosts to default empty")
	}
	if cfg.SSH.DialTimeout() != 10*time.Second {
		t.Fatalf("unexpected dial timeout %s", cfg.SSH.DialTimeout())
	}
	if cfg.Display.Width != 1024 || cfg.Display.Height != 768 {
		t.Fatalf("unexpected display %+v", cfg.Display)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestMergePrefersFlags(t *testing.T) {
	cfg := Config{Endpoint: "a:22", Username: "alice", Password: "pw"}
	cfg.Merge("b:22", "", "secret")
	if cfg.Endpoint != "b:22" || cfg.Username != "alice" || cfg.Password != "secret" {
		t.Fatalf("unexpected merge result %+v", cfg)
	}
}
