// Package sqlite is the default durable event store on both nodes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/repo"
)

var _ repo.EventStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
  id          TEXT PRIMARY KEY,
  type        TEXT NOT NULL,
  observed_at INTEGER NOT NULL,
  payload     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_observed ON events (observed_at);
CREATE INDEX IF NOT EXISTS idx_events_type_observed ON events (type, observed_at);
`

type Store struct {
	db  *sql.DB
	log *zap.Logger
}

func New(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctxInit, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctxInit); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := db.ExecContext(ctxInit, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (id, type, observed_at, payload) VALUES (?, ?, ?, ?)`,
		e.ID, string(e.Type), e.ObservedAt.UTC().UnixNano(), string(payload))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) Range(ctx context.Context, from, to time.Time, typ domain.EventType) ([]domain.Event, error) {
	q := `SELECT id, type, observed_at, payload FROM events WHERE observed_at >= ? AND observed_at <= ?`
	args := []any{from.UTC().UnixNano(), to.UTC().UnixNano()}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, string(typ))
	}
	q += ` ORDER BY observed_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("range events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		var (
			e       domain.Event
			typ     string
			nanos   int64
			payload string
		)
		if err := rows.Scan(&e.ID, &typ, &nanos, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = domain.EventType(typ)
		e.ObservedAt = time.Unix(0, nanos).UTC()
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			// keep the row; an unreadable payload is an absent measurement
			s.log.Warn("sqlite_payload_decode", zap.String("id", e.ID), zap.Error(err))
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE observed_at < ?`, before.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
