package repository

import (
	"context"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
)

// StocksRepository defines the interface for the watched stock universe.
type StocksRepository interface {
	FindActiveByMarket(ctx context.Context, market string) ([]entity.Stock, error)
}

// NewStocksRepository creates a new GORM-based stocks repository.
func NewStocksRepository(db *gorm.DB) StocksRepository {
	return &stocksRepository{db: db}
}

type stocksRepository struct {
	db *gorm.DB
}

// FindActiveByMarket retrieves the active universe of a market.
func (r *stocksRepository) FindActiveByMarket(ctx context.Context, market string) ([]entity.Stock, error) {
	var stocks []entity.Stock
	err := r.db.WithContext(ctx).
		Where("market = ? AND is_active = true", market).
		Order("code ASC").
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}
