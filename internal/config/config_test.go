//go:build !integration

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults fill unset fields", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://localhost/console
payment:
  paystack:
    secret_key: sk_test_x
`)
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("default port = %d", cfg.Server.Port)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("default log config = %+v", cfg.Log)
		}
		if cfg.Payment.Paystack.BaseURL != "https://api.paystack.co" {
			t.Errorf("default paystack base url = %q", cfg.Payment.Paystack.BaseURL)
		}
		if cfg.Scheduler.ReconcileInterval != time.Minute || cfg.Scheduler.StaleAfter != 10*time.Minute {
			t.Errorf("default scheduler config = %+v", cfg.Scheduler)
		}
		if cfg.RateLimit.VerifyPerMinute != 30 {
			t.Errorf("default verify rate = %d", cfg.RateLimit.VerifyPerMinute)
		}
	})

	t.Run("explicit values survive", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
database:
  url: postgres://localhost/console
  max_conns: 25
payment:
  paystack:
    secret_key: sk_test_x
scheduler:
  reconcile_interval: 30s
  stale_after: 5m
`)
		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Server.Port != 9090 || cfg.Database.MaxConns != 25 {
			t.Errorf("explicit values lost: %+v", cfg)
		}
		if cfg.Scheduler.ReconcileInterval != 30*time.Second || cfg.Scheduler.StaleAfter != 5*time.Minute {
			t.Errorf("scheduler config = %+v", cfg.Scheduler)
		}
	})

	t.Run("missing database url fails", func(t *testing.T) {
		path := writeConfig(t, `
payment:
  paystack:
    secret_key: sk_test_x
`)
		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected error for missing database url")
		}
	})

	t.Run("missing gateway secret fails outside dev", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://localhost/console
`)
		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected error for missing secret key")
		}
		if _, err := LoadConfig(path, true); err != nil {
			t.Fatalf("dev mode should allow a missing secret: %v", err)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false)
		if err == nil {
			t.Fatal("expected error for missing file")
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
		}
	})
}
