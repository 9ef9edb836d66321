package repository

import (
	"context"
	"time"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
)

// PredictionResultRepository defines the interface for verification results.
// Results are append-only; a rerun for the same date writes a new generation
// keyed by its own run id.
type PredictionResultRepository interface {
	CreateBatch(ctx context.Context, results []*entity.DailyPredictionResult) error
	FindByRunID(ctx context.Context, runID uint) ([]entity.DailyPredictionResult, error)
	FindLatestGeneration(ctx context.Context, date time.Time, market string) ([]entity.DailyPredictionResult, error)
}

// NewPredictionResultRepository creates a new GORM-based result repository.
func NewPredictionResultRepository(db *gorm.DB) PredictionResultRepository {
	return &predictionResultRepository{db: db}
}

type predictionResultRepository struct {
	db *gorm.DB
}

// CreateBatch appends a batch of results.
func (r *predictionResultRepository) CreateBatch(ctx context.Context, results []*entity.DailyPredictionResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&results).Error
}

// FindByRunID retrieves the results of one verification run.
func (r *predictionResultRepository) FindByRunID(ctx context.Context, runID uint) ([]entity.DailyPredictionResult, error) {
	var results []entity.DailyPredictionResult
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("stock_code ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindLatestGeneration retrieves the results of the newest run for the
// (date, market), which readers treat as the authoritative generation.
func (r *predictionResultRepository) FindLatestGeneration(ctx context.Context, date time.Time, market string) ([]entity.DailyPredictionResult, error) {
	var results []entity.DailyPredictionResult
	err := r.db.WithContext(ctx).
		Where(`prediction_date = ?::date AND market = ? AND run_id = (
			SELECT MAX(run_id) FROM daily_prediction_results
			WHERE prediction_date = ?::date AND market = ?)`,
			date, market, date, market).
		Order("stock_code ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
