package config

import (
	"os"
	"path/filepath"
	"testing"

	"volleybot/pkg/logx"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParse_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
  poll_timeout: "10s"
logging:
  level: debug
  console: true
storage:
  path: ./data/volleybot.db
poller:
  tick_time: "12:00"
  timezone: "Europe/Moscow"
web:
  enabled: true
  addr: ":8080"
  jwt_secret: "s3cret"
`)
	cfg, err := NewManager(path, logx.Nop()).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Poller.TickTime != "12:00" {
		t.Fatalf("parsed config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Moscow" {
		t.Fatalf("location: %v %v", loc, err)
	}
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
  tokenn: "typo"
`)
	if _, err := NewManager(path, logx.Nop()).Parse(); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestParse_EnvOverridesToken(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  token: "file-token"
storage:
  path: ./x.db
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	cfg, err := NewManager(path, logx.Nop()).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("token %q, env should win", cfg.Telegram.Token)
	}
}

func TestValidate_MissingToken(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Path: "./x.db"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty token accepted")
	}
}

func TestValidate_WebNeedsSecret(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		Storage:  StorageConfig{Path: "./x.db"},
		Web:      WebConfig{Enabled: true},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("web enabled without jwt secret accepted")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", 42)
	if err != nil || d != 42 {
		t.Fatalf("got %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative duration accepted")
	}
}
