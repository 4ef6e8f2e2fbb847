package storage

import (
	"context"
	"errors"
	"strings"

	logx "nudger/pkg/logx"
)

// Journal is the append-only reminder log.
type Journal interface {
	AppendReminder(ctx context.Context, r Record) error
	// RecentReminders returns up to limit records, oldest first.
	RecentReminders(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Open initializes the configured journal.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Journal, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "storage"), logx.String("driver", driver))

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(context.Background(), cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
