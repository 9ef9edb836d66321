package repository

import (
	"context"
	"time"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRepository defines the interface for feature snapshots.
type SnapshotRepository interface {
	FindExistingDates(ctx context.Context, stockCode string, from, to time.Time) (map[string]struct{}, error)
	CreateBatchIgnoreConflict(ctx context.Context, snapshots []*entity.FeatureSnapshot) (int64, error)
	FindPredictedByDate(ctx context.Context, date time.Time, market string) ([]entity.FeatureSnapshot, error)
	FindByStockRange(ctx context.Context, stockCode string, from, to time.Time) ([]entity.FeatureSnapshot, error)
	CountByMarket(ctx context.Context, market string) (int64, error)
	UpdateOutcome(ctx context.Context, id uint, actualClose, actualChangePct float64, actualDirection string, isCorrect bool, verifiedAt time.Time) error
}

// NewSnapshotRepository creates a new GORM-based snapshot repository.
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

type snapshotRepository struct {
	db *gorm.DB
}

// FindExistingDates returns the set of snapshot dates (YYYY-MM-DD) already
// recorded for the stock inside [from, to].
func (r *snapshotRepository) FindExistingDates(ctx context.Context, stockCode string, from, to time.Time) (map[string]struct{}, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).Model(&entity.FeatureSnapshot{}).
		Where("stock_code = ? AND prediction_date >= ?::date AND prediction_date <= ?::date", stockCode, from, to).
		Pluck("prediction_date", &dates).Error
	if err != nil {
		return nil, err
	}
	existing := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		existing[d.Format("2006-01-02")] = struct{}{}
	}
	return existing, nil
}

// CreateBatchIgnoreConflict inserts a batch of snapshots inside one
// transaction, skipping rows whose (prediction_date, stock_code) key already
// exists. Returns the number of rows actually inserted.
func (r *snapshotRepository) CreateBatchIgnoreConflict(ctx context.Context, snapshots []*entity.FeatureSnapshot) (int64, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prediction_date"}, {Name: "stock_code"}},
		DoNothing: true,
	}).Create(&snapshots)
	return tx.RowsAffected, tx.Error
}

// FindPredictedByDate retrieves the snapshots of a day that carry a
// prediction, i.e. the rows a verification run must resolve.
func (r *snapshotRepository) FindPredictedByDate(ctx context.Context, date time.Time, market string) ([]entity.FeatureSnapshot, error) {
	var snapshots []entity.FeatureSnapshot
	err := r.db.WithContext(ctx).
		Where("prediction_date = ?::date AND market = ? AND predicted_direction IS NOT NULL", date, market).
		Order("stock_code ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// FindByStockRange retrieves a stock's snapshots inside [from, to].
func (r *snapshotRepository) FindByStockRange(ctx context.Context, stockCode string, from, to time.Time) ([]entity.FeatureSnapshot, error) {
	var snapshots []entity.FeatureSnapshot
	err := r.db.WithContext(ctx).
		Where("stock_code = ? AND prediction_date >= ?::date AND prediction_date <= ?::date", stockCode, from, to).
		Order("prediction_date ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// CountByMarket counts the snapshots available for a market, used by tier
// sample-size gates.
func (r *snapshotRepository) CountByMarket(ctx context.Context, market string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.FeatureSnapshot{}).
		Where("market = ?", market).
		Count(&count).Error
	return count, err
}

// UpdateOutcome fills in the realized outcome fields of a snapshot. This is
// the only mutation path for an existing snapshot row.
func (r *snapshotRepository) UpdateOutcome(ctx context.Context, id uint, actualClose, actualChangePct float64, actualDirection string, isCorrect bool, verifiedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.FeatureSnapshot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"actual_close":      actualClose,
			"actual_change_pct": actualChangePct,
			"actual_direction":  actualDirection,
			"is_correct":        isCorrect,
			"verified_at":       verifiedAt,
		}).Error
}
