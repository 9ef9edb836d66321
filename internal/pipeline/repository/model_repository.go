package repository

import (
	"context"
	"errors"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
)

// ErrModelNotFound is returned when a model id or active lookup misses.
var ErrModelNotFound = errors.New("model not found")

// ModelRepository defines the interface for trained-model metadata.
type ModelRepository interface {
	Create(ctx context.Context, record *entity.ModelRecord) error
	FindByID(ctx context.Context, id uint) (*entity.ModelRecord, error)
	FindActive(ctx context.Context, market string) (*entity.ModelRecord, error)
	ActivateExclusive(ctx context.Context, id uint) error
}

// NewModelRepository creates a new GORM-based model repository.
func NewModelRepository(db *gorm.DB) ModelRepository {
	return &modelRepository{db: db}
}

type modelRepository struct {
	db *gorm.DB
}

// Create inserts a model record.
func (r *modelRepository) Create(ctx context.Context, record *entity.ModelRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByID retrieves a model record by id.
func (r *modelRepository) FindByID(ctx context.Context, id uint) (*entity.ModelRecord, error) {
	var record entity.ModelRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindActive retrieves the active model record for a market.
func (r *modelRepository) FindActive(ctx context.Context, market string) (*entity.ModelRecord, error) {
	var record entity.ModelRecord
	err := r.db.WithContext(ctx).
		Where("market = ? AND active = true", market).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ActivateExclusive flips the target record to active and every other record
// of the same market to inactive in a single transaction.
func (r *modelRepository) ActivateExclusive(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record entity.ModelRecord
		if err := tx.First(&record, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrModelNotFound
			}
			return err
		}

		if err := tx.Model(&entity.ModelRecord{}).
			Where("market = ? AND id <> ?", record.Market, id).
			Update("active", false).Error; err != nil {
			return err
		}

		return tx.Model(&entity.ModelRecord{}).
			Where("id = ?", id).
			Update("active", true).Error
	})
}
