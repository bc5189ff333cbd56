package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/smallbiznis/rewild/internal/project/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, country, available_area_sqm, unit_price_amount, currency, active,
			created_at, updated_at
		 FROM projects WHERE code = ? LIMIT 1`,
		strings.TrimSpace(code),
	).Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, nil
	}
	return &project, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]domain.Project, error) {
	var projects []domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, country, available_area_sqm, unit_price_amount, currency, active,
			created_at, updated_at
		 FROM projects WHERE active = ? ORDER BY name`,
		true,
	).Scan(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repo) Availability(ctx context.Context, db *gorm.DB, code string) (int64, bool, error) {
	var available sql.NullInt64
	err := db.WithContext(ctx).Raw(
		`SELECT available_area_sqm FROM projects WHERE code = ? AND active = ? LIMIT 1`,
		strings.TrimSpace(code),
		true,
	).Scan(&available).Error
	if err != nil {
		return 0, false, err
	}
	if !available.Valid || available.Int64 < 0 {
		return 0, false, nil
	}
	return available.Int64, true, nil
}

func (r *repo) DisplayName(ctx context.Context, db *gorm.DB, code string) string {
	var name string
	if err := db.WithContext(ctx).Raw(
		`SELECT name FROM projects WHERE code = ? LIMIT 1`,
		strings.TrimSpace(code),
	).Scan(&name).Error; err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}
