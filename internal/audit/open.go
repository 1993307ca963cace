package audit

import (
	"errors"
	"strings"

	logx "vacancywatch/pkg/logx"
)

// Open initializes the configured audit log.
// It returns (nil, nil) if auditing is disabled.
func Open(cfg Config, log logx.Logger) (Log, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown audit driver: " + driver)
	}
}
