package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/repo"
)

var _ repo.EventStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
  id          TEXT PRIMARY KEY,
  type        TEXT NOT NULL,
  observed_at TIMESTAMPTZ NOT NULL,
  payload     JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS idx_events_observed      ON events (observed_at);
CREATE INDEX IF NOT EXISTS idx_events_type_observed ON events (type, observed_at);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctxPing, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Append(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO events (id, type, observed_at, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Type), e.ObservedAt.UTC(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) Range(ctx context.Context, from, to time.Time, typ domain.EventType) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, type, observed_at, payload
  FROM events
 WHERE observed_at >= $1
   AND observed_at <= $2
   AND ($3 = '' OR type = $3)
 ORDER BY observed_at ASC, id ASC`, from.UTC(), to.UTC(), string(typ))
	if err != nil {
		return nil, fmt.Errorf("range events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		var (
			id         string
			typ        string
			observedAt time.Time
			payload    []byte
		)
		if err := rows.Scan(&id, &typ, &observedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e := domain.Event{ID: id, Type: domain.EventType(typ), ObservedAt: observedAt.UTC()}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			s.log.Warn("postgres_payload_decode", zap.String("id", id), zap.Error(err))
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE observed_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return tag.RowsAffected(), nil
}
