package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "nudger/pkg/logx"
)

//go:embed migrations.sql
var migrations string

type sqliteJournal struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(ctx context.Context, cfg Config, log logx.Logger) (Journal, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(ctx, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug("journal opened", logx.String("path", path))
	return &sqliteJournal{db: db, log: log}, nil
}

func (s *sqliteJournal) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteJournal) AppendReminder(ctx context.Context, r Record) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	ids, err := json.Marshal(r.EntityIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reminders(created_at, candidate_id, candidate_name, entity_type, urgency, entity_ids, recorded_at)
		 VALUES(?,?,?,?,?,?,?)`,
		r.CreatedAt.UTC().Format(time.RFC3339Nano), r.CandidateID, nullStr(r.CandidateName),
		r.EntityType, r.Urgency, string(ids), r.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteJournal) RecentReminders(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at, candidate_id, candidate_name, entity_type, urgency, entity_ids, recorded_at
		 FROM reminders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                 Record
			name              sql.NullString
			created, recorded string
			ids               string
		)
		if err := rows.Scan(&created, &r.CandidateID, &name, &r.EntityType, &r.Urgency, &ids, &recorded); err != nil {
			return nil, err
		}
		r.CandidateName = name.String
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("recorded_at: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &r.EntityIDs); err != nil {
			return nil, fmt.Errorf("entity_ids: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
