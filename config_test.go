package httpkit

import (
	"errors"
	"testing"
	"time"

	"github.com/ggoodman/httpkit/sessions/memoryhost"
)

func TestConfigNewBackend(t *testing.T) {
	cfg := DefaultConfig()
	backend, closer, err := cfg.NewBackend()
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer closer.Close()
	if _, ok := backend.(*memoryhost.Host); !ok {
		t.Fatalf("expected memory backend, got %T", backend)
	}

	cfg.SessionBackend = "files"
	if _, _, err := cfg.NewBackend(); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SESSION_NAME", "app.sid")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("SESSION_COOKIE_MAX_AGE", "3600")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SessionName != "app.sid" || !cfg.CookieSecure || cfg.CookieMaxAge != 3600 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SessionBackend != BackendMemory || cfg.CookiePath != "/" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultConfig()
	if cfg.SessionName != want.SessionName || cfg.SessionTTL != 24*time.Hour || cfg.SessionBackend != want.SessionBackend {
		t.Fatalf("LoadConfig() = %+v, want defaults %+v", cfg, want)
	}
}
