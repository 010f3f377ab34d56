package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/otzarri/fleetplan/internal/core/ports"
)

// SettingsRepo implements ports.SettingsRepository as a plain key-value
// table. Values are opaque strings; encoding happens in the usecase layer.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT value FROM settings WHERE key = $1
	`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ports.ErrNotFound
	}
	return value, err
}

func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

func (r *SettingsRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key)
	return err
}
