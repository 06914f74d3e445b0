package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder/internal/models"
)

// SettingRepository manages key/value settings.
type SettingRepository struct {
	store *Store
}

// NewSettingRepository creates a new instance of SettingRepository.
func NewSettingRepository(store *Store) *SettingRepository {
	return &SettingRepository{store: store}
}

// List returns all settings ordered by key.
func (r *SettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return selectAll(ctx, q, &settings, `SELECT key, value, description, updated_at FROM settings ORDER BY key`)
	})
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Get returns a setting by key.
func (r *SettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return get(ctx, q, &setting, `SELECT key, value, description, updated_at FROM settings WHERE key = ?`, key)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &setting, nil
}

// Upsert inserts or replaces a setting.
func (r *SettingRepository) Upsert(ctx context.Context, setting *models.Setting) error {
	const query = `INSERT INTO settings (key, value, description, updated_at)
VALUES (:key, :value, :description, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return namedExec(ctx, q, query, setting)
	})
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
