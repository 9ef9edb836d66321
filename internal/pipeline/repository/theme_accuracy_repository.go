package repository

import (
	"context"
	"time"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThemeAccuracyRepository defines the interface for per-theme accuracy rows.
type ThemeAccuracyRepository interface {
	Upsert(ctx context.Context, records []*entity.ThemeAccuracyRecord) error
	FindByDate(ctx context.Context, date time.Time, market string) ([]entity.ThemeAccuracyRecord, error)
}

// NewThemeAccuracyRepository creates a new GORM-based theme accuracy repository.
func NewThemeAccuracyRepository(db *gorm.DB) ThemeAccuracyRepository {
	return &themeAccuracyRepository{db: db}
}

type themeAccuracyRepository struct {
	db *gorm.DB
}

// Upsert writes the records, replacing any prior computation for the same
// (prediction_date, theme, market) key.
func (r *themeAccuracyRepository) Upsert(ctx context.Context, records []*entity.ThemeAccuracyRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "prediction_date"}, {Name: "theme"}, {Name: "market"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_stocks", "correct_count", "accuracy_rate",
			"avg_predicted_score", "avg_actual_change_pct", "updated_at",
		}),
	}).Create(&records).Error
}

// FindByDate retrieves the theme accuracy rows of a (date, market).
func (r *themeAccuracyRepository) FindByDate(ctx context.Context, date time.Time, market string) ([]entity.ThemeAccuracyRecord, error) {
	var records []entity.ThemeAccuracyRecord
	err := r.db.WithContext(ctx).
		Where("prediction_date = ?::date AND market = ?", date, market).
		Order("theme ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
