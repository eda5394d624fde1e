package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type settingRepository struct {
	db *sqlx.DB
}

func NewSettingRepository(db *sqlx.DB) repository.SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	query := `SELECT * FROM system_settings WHERE key = $1`
	var setting model.SystemSetting
	err := r.db.GetContext(ctx, &setting, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("setting", err)
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

func (r *settingRepository) List(ctx context.Context, publicOnly bool) ([]*model.SystemSetting, error) {
	query := `SELECT * FROM system_settings`
	if publicOnly {
		query += ` WHERE is_public = true`
	}
	query += ` ORDER BY key`

	var settings []*model.SystemSetting
	err := r.db.SelectContext(ctx, &settings, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

func (r *settingRepository) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	query := `
		INSERT INTO system_settings (
			id, key, value, value_type, description, is_public, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $7
		)
		ON CONFLICT (key)
		DO UPDATE SET
			value = EXCLUDED.value,
			value_type = EXCLUDED.value_type,
			description = EXCLUDED.description,
			is_public = EXCLUDED.is_public,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, query,
		setting.ID,
		setting.Key,
		setting.Value,
		setting.Type,
		setting.Description,
		setting.IsPublic,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}
