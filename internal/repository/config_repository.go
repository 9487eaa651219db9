package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edubridge/reportcard-api/internal/models"
)

// ConfigRepository loads school branding defaults and class-level visual
// overrides.
type ConfigRepository struct {
	db *sqlx.DB
}

// NewConfigRepository constructs the repository.
func NewConfigRepository(db *sqlx.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetSchoolConfig returns the singleton school configuration row.
func (r *ConfigRepository) GetSchoolConfig(ctx context.Context) (*models.SchoolConfig, error) {
	const query = `SELECT id, name, display_name, address, motto, logo_url, theme_color, default_variant, principal_label, teacher_label
FROM school_config LIMIT 1`
	var cfg models.SchoolConfig
	if err := r.db.GetContext(ctx, &cfg, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get school config: %w", err)
	}
	return &cfg, nil
}

// GetClassConfig returns the overrides for one class, or nil when the class
// has none.
func (r *ConfigRepository) GetClassConfig(ctx context.Context, classID string) (*models.ClassConfig, error) {
	const query = `SELECT class_id, variant, theme_color, logo_url, school_name_override, principal_label, teacher_label, components
FROM class_configs WHERE class_id = $1`
	var cfg models.ClassConfig
	if err := r.db.GetContext(ctx, &cfg, query, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class config: %w", err)
	}
	return &cfg, nil
}
