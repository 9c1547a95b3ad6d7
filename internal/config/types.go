package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Poller   PollerConfig   `json:"poller"`
	Web      WebConfig      `json:"web"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via TELEGRAM_BOT_TOKEN.
	Token string `json:"token,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	// AdminUserIDs seeds the admin list on first run.
	AdminUserIDs []int64 `json:"admin_user_ids,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

type PollerConfig struct {
	// TickTime is the local wall-clock time of the daily poll check, "HH:MM".
	TickTime string `json:"tick_time,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type WebConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	// JWTSecret may be left empty in the file and supplied via JWT_SECRET.
	JWTSecret    string   `json:"jwt_secret,omitempty"`
	AllowOrigins []string `json:"allow_origins,omitempty"`
	AccessTTL    string   `json:"access_ttl,omitempty"`  // default 15m
	RefreshTTL   string   `json:"refresh_ttl,omitempty"` // default 720h
}

// ApplyEnv overlays secrets from the environment. Env always wins so secrets
// can be kept out of the config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Web.JWTSecret = v
	}
}

// Validate checks the parts that would otherwise only fail at an awkward
// moment later.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is empty (set it or TELEGRAM_BOT_TOKEN)")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is empty")
	}
	if c.Web.Enabled && strings.TrimSpace(c.Web.JWTSecret) == "" {
		return errors.New("web.jwt_secret is empty (set it or JWT_SECRET)")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	return nil
}

// Location resolves the poller timezone, defaulting to the system zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Poller.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Poller.Timezone)
	if err != nil {
		return nil, fmt.Errorf("poller.timezone: %w", err)
	}
	return loc, nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
