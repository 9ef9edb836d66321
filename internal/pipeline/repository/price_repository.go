package repository

import (
	"context"
	"errors"
	"time"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceRepository defines the interface for daily price bars.
type PriceRepository interface {
	CreateIgnoreConflict(ctx context.Context, bar *entity.PriceBar) error
	FindRange(ctx context.Context, stockCode string, from, to time.Time) ([]entity.PriceBar, error)
	FindLastBefore(ctx context.Context, stockCode string, date time.Time) (*entity.PriceBar, error)
	FindFirstOnOrAfter(ctx context.Context, stockCode string, date time.Time) (*entity.PriceBar, error)
}

// NewPriceRepository creates a new GORM-based price repository.
func NewPriceRepository(db *gorm.DB) PriceRepository {
	return &priceRepository{db: db}
}

type priceRepository struct {
	db *gorm.DB
}

// CreateIgnoreConflict inserts a bar, ignoring duplicates on (stock, date).
func (r *priceRepository) CreateIgnoreConflict(ctx context.Context, bar *entity.PriceBar) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_code"}, {Name: "trade_date"}},
		DoNothing: true,
	}).Create(bar).Error
}

// FindRange retrieves bars for [from, to] inclusive, oldest first.
func (r *priceRepository) FindRange(ctx context.Context, stockCode string, from, to time.Time) ([]entity.PriceBar, error) {
	var bars []entity.PriceBar
	err := r.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date >= ?::date AND trade_date <= ?::date", stockCode, from, to).
		Order("trade_date ASC").
		Find(&bars).Error
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// FindLastBefore retrieves the most recent bar strictly before the date, or
// nil when no earlier session exists.
func (r *priceRepository) FindLastBefore(ctx context.Context, stockCode string, date time.Time) (*entity.PriceBar, error) {
	var bar entity.PriceBar
	err := r.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date < ?::date", stockCode, date).
		Order("trade_date DESC").
		First(&bar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bar, nil
}

// FindFirstOnOrAfter retrieves the earliest bar at or after the date, or nil
// when the session has not been recorded yet.
func (r *priceRepository) FindFirstOnOrAfter(ctx context.Context, stockCode string, date time.Time) (*entity.PriceBar, error) {
	var bar entity.PriceBar
	err := r.db.WithContext(ctx).
		Where("stock_code = ? AND trade_date >= ?::date", stockCode, date).
		Order("trade_date ASC").
		First(&bar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bar, nil
}
