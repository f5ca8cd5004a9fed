package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads, decodes and validates the config file at path, applying
// environment overrides for secrets. Any error here is a fatal startup
// error: the process must not enter the scheduling core without a
// complete configuration.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("invalid config: trailing data")
		}
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets stay out of the config file.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CALDAV_PASSWORD")); v != "" {
		cfg.CalDAV.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Sync.Schedule) == "" {
		cfg.Sync.Schedule = "30m"
	}
	if cfg.Sync.WindowDays == 0 {
		cfg.Sync.WindowDays = 5
	}
	if cfg.Telegram.RatePerSec == 0 {
		cfg.Telegram.RatePerSec = 1
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = "UTC"
	}
}

// Validate reports the first missing or malformed required value.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.CalDAV.URL) == "" {
		return errors.New("caldav.url is required")
	}
	if strings.TrimSpace(cfg.CalDAV.Username) == "" {
		return errors.New("caldav.username is required")
	}
	if strings.TrimSpace(cfg.CalDAV.Password) == "" {
		return errors.New("caldav.password is required (config or CALDAV_PASSWORD)")
	}
	if len(cfg.CalDAV.CalendarIDs) == 0 {
		return errors.New("caldav.calendar_ids must name at least one calendar")
	}
	for _, id := range cfg.CalDAV.CalendarIDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("caldav.calendar_ids must not contain empty entries")
		}
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required (config or TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required")
	}
	if cfg.Sync.WindowDays < 0 {
		return errors.New("sync.window_days must be >= 0")
	}
	if _, err := ParseDurationField("sync.default_reminder", cfg.Sync.DefaultReminder); err != nil {
		return err
	}
	if cfg.Storage != nil && cfg.Storage.Enabled {
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return errors.New("storage.path is required when storage is enabled")
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
		if _, err := ParseDurationField("storage.retention", cfg.Storage.Retention); err != nil {
			return err
		}
	}
	return nil
}

// ConsoleEnabled resolves the tri-state console flag.
func (c LoggingConfig) ConsoleEnabled() bool {
	if c.Console == nil {
		return true
	}
	return *c.Console
}
