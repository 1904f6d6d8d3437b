// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/keywatch/internal/store"
)

// Schema creates the history tables when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS keywatch_runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	target_url  TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	stopped_at  TIMESTAMPTZ,
	status      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS keywatch_hits (
	run_id      TEXT NOT NULL REFERENCES keywatch_runs (id),
	keyword     TEXT NOT NULL,
	title       TEXT NOT NULL,
	link        TEXT NOT NULL DEFAULT '',
	found_at    TIMESTAMPTZ NOT NULL,
	notified_at TIMESTAMPTZ,
	PRIMARY KEY (run_id, title)
);`

// HitStoreConfig controls the Postgres connection pool.
type HitStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// HitStore implements store.HitRepository on Postgres.
type HitStore struct {
	pool pool
}

var _ store.HitRepository = (*HitStore)(nil)

// NewHitStore opens a pool using cfg.
func NewHitStore(ctx context.Context, cfg HitStoreConfig) (*HitStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &HitStore{pool: p}, nil
}

// NewHitStoreWithPool wraps an existing pool; used by tests.
func NewHitStoreWithPool(p pool) *HitStore {
	return &HitStore{pool: p}
}

// EnsureSchema applies Schema.
func (s *HitStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *HitStore) Close() {
	s.pool.Close()
}

// RecordRunStart inserts the run row. A repeated start for the same id is a no-op.
func (s *HitStore) RecordRunStart(ctx context.Context, run store.Run) error {
	query := `
		INSERT INTO keywatch_runs (id, mode, target_url, started_at, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, query, run.ID, run.Mode, run.TargetURL, run.StartedAt, store.RunRunning)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordRunStop marks the run stopped.
func (s *HitStore) RecordRunStop(ctx context.Context, runID string, stoppedAt time.Time) error {
	query := `
		UPDATE keywatch_runs
		SET stopped_at = $1, status = $2
		WHERE id = $3;
	`
	_, err := s.pool.Exec(ctx, query, stoppedAt, store.RunStopped, runID)
	if err != nil {
		return fmt.Errorf("failed to record run stop: %w", err)
	}
	return nil
}

// RecordHit inserts one hit row.
func (s *HitStore) RecordHit(ctx context.Context, hit store.HitRecord) error {
	query := `
		INSERT INTO keywatch_hits (run_id, keyword, title, link, found_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, title) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, query, hit.RunID, hit.Keyword, hit.Title, hit.Link, hit.FoundAt)
	if err != nil {
		return fmt.Errorf("failed to record hit: %w", err)
	}
	return nil
}

// MarkNotified stamps notified_at. A missing hit row is not an error.
func (s *HitStore) MarkNotified(ctx context.Context, runID, title string, at time.Time) error {
	query := `
		UPDATE keywatch_hits
		SET notified_at = $1
		WHERE run_id = $2 AND title = $3;
	`
	_, err := s.pool.Exec(ctx, query, at, runID, title)
	if err != nil {
		return fmt.Errorf("failed to mark hit notified: %w", err)
	}
	return nil
}

// ListHits returns hits newest first, optionally filtered by run.
func (s *HitStore) ListHits(ctx context.Context, runID string, limit, offset int) ([]store.HitRecord, error) {
	query := `
		SELECT run_id, keyword, title, link, found_at, notified_at
		FROM keywatch_hits
		WHERE ($1 = '' OR run_id = $1)
		ORDER BY found_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list hits: %w", err)
	}
	defer rows.Close()

	var hits []store.HitRecord
	for rows.Next() {
		var hit store.HitRecord
		err := rows.Scan(
			&hit.RunID,
			&hit.Keyword,
			&hit.Title,
			&hit.Link,
			&hit.FoundAt,
			&hit.NotifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hit row: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hit rows: %w", err)
	}
	return hits, nil
}
