package repository

import (
	"context"
	"time"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
)

// EventRepository defines the read-only interface for similarity candidates.
type EventRepository interface {
	FindCandidates(ctx context.Context, eventType, market string, sameMarketOnly bool, from, before time.Time, excludeID uint) ([]entity.MarketEvent, error)
	FindOutcomes(ctx context.Context, eventIDs []uint) (map[uint]entity.EventOutcome, error)
}

// NewEventRepository creates a new GORM-based event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

type eventRepository struct {
	db *gorm.DB
}

// FindCandidates retrieves events of the same type occurring inside
// [from, before), excluding the reference event itself. The order is fixed
// (occurrence, then id) so downstream stable sorting is deterministic.
func (r *eventRepository) FindCandidates(ctx context.Context, eventType, market string, sameMarketOnly bool, from, before time.Time, excludeID uint) ([]entity.MarketEvent, error) {
	q := r.db.WithContext(ctx).
		Where("event_type = ? AND occurred_at >= ? AND occurred_at < ? AND id <> ?",
			eventType, from, before, excludeID)
	if sameMarketOnly {
		q = q.Where("market = ?", market)
	}

	var events []entity.MarketEvent
	if err := q.Order("occurred_at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// FindOutcomes retrieves resolved outcomes for the given events, keyed by
// event id. Events without a resolved outcome are simply absent.
func (r *eventRepository) FindOutcomes(ctx context.Context, eventIDs []uint) (map[uint]entity.EventOutcome, error) {
	if len(eventIDs) == 0 {
		return map[uint]entity.EventOutcome{}, nil
	}
	var outcomes []entity.EventOutcome
	err := r.db.WithContext(ctx).
		Where("event_id IN ?", eventIDs).
		Find(&outcomes).Error
	if err != nil {
		return nil, err
	}
	byEvent := make(map[uint]entity.EventOutcome, len(outcomes))
	for _, o := range outcomes {
		byEvent[o.EventID] = o
	}
	return byEvent, nil
}
