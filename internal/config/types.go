package config

type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Logging     LoggingConfig     `json:"logging"`
	Watch       WatchConfig       `json:"watch"`
	Subscribers SubscribersConfig `json:"subscribers"`
	Audit       *AuditConfig      `json:"audit,omitempty"`
}

// TelegramConfig tunes the chat transport. The bot token itself never lives
// in the config file; it comes from the environment (see Credentials).
type TelegramConfig struct {
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// RatePerSec caps outbound send/edit/copy calls. 0 means default.
	RatePerSec int `json:"rate_per_sec,omitempty"`
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

// WatchConfig describes the tracked vacancy search and how often to probe it.
//
// All durations are Go duration strings (e.g. "30s", "1m").
type WatchConfig struct {
	// Interval between probe cycles. Defaults to "60s".
	Interval string `json:"interval,omitempty"`

	Keyword        string `json:"keyword"`
	LocationName   string `json:"location_name"`
	Radius         int    `json:"radius,omitempty"`
	PayGradeLow    int    `json:"pay_grade_low,omitempty"`
	ResultsPerPage int    `json:"results_per_page,omitempty"`

	// BaseURL overrides the upstream search endpoint (tests only).
	BaseURL string `json:"base_url,omitempty"`

	// RequestTimeout bounds one probe HTTP call. Defaults to "10s".
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type SubscribersConfig struct {
	// Path of the JSON subscriber store. Defaults to "./data/user_data.json".
	Path string `json:"path,omitempty"`
}

// AuditConfig controls the optional delivery audit log.
//
// Driver values:
//   - "file": append-only JSON Lines (default backend)
//   - "sqlite": SQLite database file (requires the sqlite build tag)
//
// If the section is omitted or Driver is empty/"none", auditing is disabled.
type AuditConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
