package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.DB.MigrationsPath != "migrations" {
		t.Errorf("migrations path = %q", cfg.DB.MigrationsPath)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q", cfg.NATS.URL)
	}
	if !cfg.Browser.Headless {
		t.Error("browser should default to headless")
	}
	if cfg.Browser.SettleDelay != 50*time.Millisecond {
		t.Errorf("settle delay = %s", cfg.Browser.SettleDelay)
	}
	if cfg.Training.SessionTTL != 24*time.Hour {
		t.Errorf("session ttl = %s", cfg.Training.SessionTTL)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BROWSER_CONTROL_URL", "ws://chrome:9222/devtools/browser/abc")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_SETTLE_DELAY", "80ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENGINE_LOCK_TTL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Browser.ControlURL != "ws://chrome:9222/devtools/browser/abc" {
		t.Errorf("control url = %q", cfg.Browser.ControlURL)
	}
	if cfg.Browser.Headless {
		t.Error("BROWSER_HEADLESS=false should disable headless")
	}
	if cfg.Browser.SettleDelay != 80*time.Millisecond {
		t.Errorf("settle delay = %s", cfg.Browser.SettleDelay)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Engine.LockTTL != time.Minute {
		t.Errorf("lock ttl = %s", cfg.Engine.LockTTL)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRAINING_SESSION_TTL", "forever")

	if _, err := Load(); err == nil {
		t.Fatal("expected duration parse error")
	}
}
