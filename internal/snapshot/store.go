package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polyeditor/polyeditor/backend-go/internal/typeid"
)

var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one saved version of a level's layout.
type Snapshot struct {
	ID        string          `json:"id"`
	Level     string          `json:"level"`
	Version   int32           `json:"version"`
	Document  json.RawMessage `json:"document,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewPool connects to Postgres and checks the connection.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store keeps layout snapshots in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS layout_snapshots (
	id         TEXT PRIMARY KEY,
	level      TEXT NOT NULL,
	version    INTEGER NOT NULL,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (level, version)
)`

// Migrate creates the snapshot table if it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

const insertSnapshot = `
INSERT INTO layout_snapshots (id, level, version, document)
SELECT $1::text, $2::text, COALESCE(MAX(version), 0) + 1, $3::jsonb
FROM layout_snapshots WHERE level = $2::text
RETURNING version, created_at`

// Save stores doc as the next version of level.
func (s *Store) Save(ctx context.Context, level string, doc []byte) (*Snapshot, error) {
	snap := &Snapshot{ID: typeid.NewSnapshotID(), Level: level}
	err := s.pool.QueryRow(ctx, insertSnapshot, snap.ID, level, doc).Scan(&snap.Version, &snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

const selectLatest = `
SELECT id, level, version, document, created_at
FROM layout_snapshots WHERE level = $1
ORDER BY version DESC LIMIT 1`

// Latest returns the newest snapshot of level.
func (s *Store) Latest(ctx context.Context, level string) (*Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx, selectLatest, level).
		Scan(&snap.ID, &snap.Level, &snap.Version, &snap.Document, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", level, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return &snap, nil
}

const selectVersions = `
SELECT id, level, version, created_at
FROM layout_snapshots WHERE level = $1
ORDER BY version DESC`

// Versions lists the snapshots of level newest first, without their documents.
func (s *Store) Versions(ctx context.Context, level string) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx, selectVersions, level)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Snapshot, error) {
		var snap Snapshot
		err := row.Scan(&snap.ID, &snap.Level, &snap.Version, &snap.CreatedAt)
		return snap, err
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}
