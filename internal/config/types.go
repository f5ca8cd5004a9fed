package config

// Config is the full process configuration.
//
// The file may be JSON or YAML; unknown keys are rejected so typos fail
// fast instead of being silently ignored. All duration fields are Go
// duration strings (e.g. "90s", "30m", "1h30m").
type Config struct {
	CalDAV   CalDAVConfig   `json:"caldav"`
	Sync     SyncConfig     `json:"sync"`
	Telegram TelegramConfig `json:"telegram"`

	// Timezone is an IANA zone name (e.g. "Europe/Berlin").
	// Floating and date-only calendar times are interpreted in this
	// zone. Defaults to UTC.
	Timezone string `json:"timezone,omitempty"`

	// TemplatePath points at an optional message template file.
	// When empty or missing, a fixed two-line fallback body is used.
	TemplatePath string `json:"template_path,omitempty"`

	Logging LoggingConfig  `json:"logging"`
	Storage *StorageConfig `json:"storage,omitempty"`
}

// CalDAVConfig describes the calendar source.
//
// Password may be omitted from the file and supplied via the
// CALDAV_PASSWORD environment variable instead.
type CalDAVConfig struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`

	// CalendarIDs selects the subscribed calendars. An ID is the last
	// path segment of the calendar's collection URL.
	CalendarIDs []string `json:"calendar_ids"`
}

// SyncConfig controls the periodic source synchronization.
type SyncConfig struct {
	// Schedule accepts a Go duration ("30m"), a cron descriptor
	// ("@every 30m", "@hourly") or a cron expression ("*/30 * * * *").
	// Defaults to "30m".
	Schedule string `json:"schedule,omitempty"`

	// WindowDays is the forward-looking event fetch window. Defaults to 5.
	WindowDays int `json:"window_days,omitempty"`

	// DefaultReminder is an optional offset before an event's start at
	// which to remind when the event carries no explicit alarms ("15m").
	// Unset means events without alarms produce no reminder.
	DefaultReminder string `json:"default_reminder,omitempty"`
}

// TelegramConfig describes the notification channel.
//
// Token may be omitted from the file and supplied via the
// TELEGRAM_BOT_TOKEN environment variable instead.
type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chat_id"`

	// ThreadID addresses a forum topic inside the chat. 0 means none.
	ThreadID int `json:"thread_id,omitempty"`

	// RatePerSec caps outgoing sends. Defaults to 1.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// Console is a pointer so "omitted" (default true) can be told apart
	// from an explicit false.
	Console *bool       `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the optional dispatch-history store.
//
// Example:
//
//	"storage": { "enabled": true, "path": "./remindbot.db" }
type StorageConfig struct {
	Enabled     bool   `json:"enabled"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`

	// Retention bounds how long dispatch history is kept. Defaults to
	// "720h" (30 days).
	Retention string `json:"retention,omitempty"`
}
