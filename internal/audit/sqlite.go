//go:build sqlite
// +build sqlite

package audit

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "vacancywatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteLog struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Log, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("audit.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	l := &sqliteLog{db: db, log: log}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *sqliteLog) migrate() error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = l.db.Exec(string(b))
	return err
}

func (l *sqliteLog) Append(e Entry) error {
	if l == nil || l.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := l.db.Exec(
		`INSERT INTO delivery(at, subscriber_id, chat_id, action, message_id, job_found, ok, err)
		 VALUES(?,?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.SubscriberID, e.ChatID, e.Action, e.MessageID, e.JobFound, e.OK, e.Error,
	)
	return err
}

func (l *sqliteLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
