package appconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secretq.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Backend != BackendRedis || c.HTTP.Listen != ":8080" || c.Marker.MaxAge != 120 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.Session.IdleTTL != 15*time.Minute || c.Session.MaxLifetime != time.Hour {
		t.Fatalf("unexpected session defaults %+v", c.Session)
	}
	if c.Attempts.MaxAttempts != 5 || c.Attempts.Window != 5*time.Minute || c.Attempts.PerIP {
		t.Fatalf("unexpected attempt defaults %+v", c.Attempts)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
backend: sqlite
sqlite_dsn: file:test.db
http:
  listen: ":9090"
marker:
  max_age: 300
  secure: true
answer:
  strategy: argon2
session:
  idle_ttl: 5m
`)
	t.Setenv("SECRETQ_HTTP_LISTEN", ":7070")

	c, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Backend != BackendSQLite || c.SQLiteDSN != "file:test.db" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.HTTP.Listen != ":7070" {
		t.Fatalf("expected env override, got %q", c.HTTP.Listen)
	}
	if c.Marker.MaxAge != 300 || !c.Marker.Secure || c.Session.IdleTTL != 5*time.Minute {
		t.Fatalf("unexpected values %+v", c)
	}
}

func TestLoadFlagOverridesFile(t *testing.T) {
	path := writeFile(t, "locale: en\n")
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("locale", "en", "")
	if err := cmd.Flags().Set("locale", "zh"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	c, err := Load(cmd, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Locale != "zh" {
		t.Fatalf("expected flag override, got %q", c.Locale)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	if _, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	if _, err := Load(nil, writeFile(t, "backend: etcd\n")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := Load(nil, writeFile(t, "backend: postgres\n")); err == nil {
		t.Fatal("expected error for postgres backend without sql_dsn")
	}
	if _, err := Load(nil, writeFile(t, "marker:\n  max_age: 0\n")); err == nil {
		t.Fatal("expected error for zero max age")
	}
	if _, err := Load(nil, writeFile(t, "attempts:\n  max_attempts: -1\n")); err == nil {
		t.Fatal("expected error for negative attempt limit")
	}
	if _, err := Load(nil, writeFile(t, "attempts:\n  window: 0s\n")); err == nil {
		t.Fatal("expected error for empty attempt window")
	}
	if _, err := Load(nil, writeFile(t, "http:\n  trusted_proxies: [\"10.0.0.0/33\"]\n")); err == nil {
		t.Fatal("expected error for invalid trusted proxy range")
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	c, err := Load(nil, writeFile(t, "http:\n  trusted_proxies:\n    - 10.0.0.0/8\n    - 127.0.0.1\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.HTTP.TrustedProxies) != 2 || c.HTTP.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("unexpected trusted proxies %v", c.HTTP.TrustedProxies)
	}
}

func TestEngineConfigMapping(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Marker.SigningKey = "0123456789abcdef0123456789abcdef"
	c.Marker.Skip = true

	cfg, err := c.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if cfg.Bypass.DefaultMaxAge != 120*time.Second || !cfg.Bypass.SkipChallengeWithMarker {
		t.Fatalf("unexpected bypass config %+v", cfg.Bypass)
	}
	if len(cfg.Bypass.SigningKey) != 32 {
		t.Fatalf("expected signing key to be set")
	}
	if got := c.AuthenticatorConfig()["cookie.max.age"]; got != "120" {
		t.Fatalf("expected cookie.max.age=120, got %q", got)
	}

	c.Answer.Strategy = "rot13"
	if _, err := c.EngineConfig(); err == nil {
		t.Fatal("expected engine validation error for unknown strategy")
	}
}

func TestWriteRoundTripsThroughLoad(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Locale = "zh"
	c.Session.MaxLifetime = 2 * time.Hour

	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	loaded, err := Load(nil, writeFile(t, buf.String()))
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if loaded.Locale != "zh" || loaded.Session.MaxLifetime != 2*time.Hour {
		t.Fatalf("written config did not load back: %+v", loaded)
	}
}
