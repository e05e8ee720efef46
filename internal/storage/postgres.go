package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgBackend keeps each key as one row of the app_state table.
// The schema is created by db.EnsureSchema.
type PgBackend struct {
	pool *pgxpool.Pool
}

func NewPgBackend(pool *pgxpool.Pool) *PgBackend {
	return &PgBackend{pool: pool}
}

func (p *PgBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, `
		SELECT value
		FROM app_state
		WHERE key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (p *PgBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO app_state (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (p *PgBackend) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PgBackend) Close() error {
	p.pool.Close()
	return nil
}
