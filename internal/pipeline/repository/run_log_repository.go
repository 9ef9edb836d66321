package repository

import (
	"context"
	"time"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
)

// RunLogRepository defines the interface for verification run logs.
type RunLogRepository interface {
	Create(ctx context.Context, log *entity.VerificationRunLog) error
	Update(ctx context.Context, log *entity.VerificationRunLog) error
	FindByDate(ctx context.Context, date time.Time, market string) ([]entity.VerificationRunLog, error)
}

// NewRunLogRepository creates a new GORM-based run log repository.
func NewRunLogRepository(db *gorm.DB) RunLogRepository {
	return &runLogRepository{db: db}
}

type runLogRepository struct {
	db *gorm.DB
}

// Create appends a new run log row.
func (r *runLogRepository) Create(ctx context.Context, log *entity.VerificationRunLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// Update persists a status transition on an existing run log.
func (r *runLogRepository) Update(ctx context.Context, log *entity.VerificationRunLog) error {
	return r.db.WithContext(ctx).Save(log).Error
}

// FindByDate retrieves the run logs for a (date, market), newest run first.
func (r *runLogRepository) FindByDate(ctx context.Context, date time.Time, market string) ([]entity.VerificationRunLog, error) {
	var logs []entity.VerificationRunLog
	err := r.db.WithContext(ctx).
		Where("run_date = ?::date AND market = ?", date, market).
		Order("started_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
