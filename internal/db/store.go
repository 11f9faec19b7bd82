package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lisongmechlab/lsml-sub002/internal/apperrors"
	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
)

const loadoutSchema = `CREATE TABLE IF NOT EXISTS saved_loadouts (
	id UUID PRIMARY KEY,
	chassis TEXT NOT NULL,
	snapshot JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Saved is a stored loadout snapshot.
type Saved struct {
	ID        uuid.UUID        `json:"id"`
	Snapshot  loadout.Snapshot `json:"snapshot"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// LoadoutStore persists loadout snapshots in Postgres.
type LoadoutStore struct {
	Pool *pgxpool.Pool
}

func NewLoadoutStore(pool *pgxpool.Pool) *LoadoutStore {
	return &LoadoutStore{Pool: pool}
}

// ConnectPostgres opens a pool and makes sure the schema exists.
func ConnectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, loadoutSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create saved_loadouts: %w", err)
	}
	return pool, nil
}

// Save inserts or replaces the snapshot stored under id.
func (s *LoadoutStore) Save(ctx context.Context, id uuid.UUID, snap loadout.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO saved_loadouts (id, chassis, snapshot)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET chassis = EXCLUDED.chassis, snapshot = EXCLUDED.snapshot, updated_at = now()`,
		id, snap.Chassis, b)
	if err != nil {
		return fmt.Errorf("save loadout %s: %w", id, err)
	}
	return nil
}

// Load returns the snapshot stored under id.
func (s *LoadoutStore) Load(ctx context.Context, id uuid.UUID) (*Saved, error) {
	var raw []byte
	out := &Saved{ID: id}
	err := s.Pool.QueryRow(ctx,
		`SELECT snapshot, updated_at FROM saved_loadouts WHERE id = $1`, id,
	).Scan(&raw, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "saved loadout not found", map[string]string{"id": id.String()})
	}
	if err != nil {
		return nil, fmt.Errorf("load loadout %s: %w", id, err)
	}
	if err := json.Unmarshal(raw, &out.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return out, nil
}
