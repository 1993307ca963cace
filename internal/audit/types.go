package audit

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("audit disabled")

// Config configures the delivery audit log.
//
// Driver values:
//   - "file": dependency-free JSON Lines backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", auditing is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one delivery decision outcome.
// Keep it compact and schema-stable.
type Entry struct {
	At           time.Time `json:"at"`
	SubscriberID string    `json:"subscriber_id"`
	ChatID       int64     `json:"chat_id"`
	Action       string    `json:"action"` // send | edit | copy | skip
	MessageID    int       `json:"message_id,omitempty"`
	JobFound     bool      `json:"job_found"`
	OK           bool      `json:"ok"`
	Error        string    `json:"err,omitempty"`
}

// Log is the append-only audit sink consumed by the engine.
type Log interface {
	Append(e Entry) error
	Close() error
}
