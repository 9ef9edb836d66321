package entity

import "time"

// MarketEvent is a dated, typed event used as a similarity candidate for
// analog-based reasoning. Immutable once recorded.
type MarketEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StockCode   string    `gorm:"not null" json:"stock_code"`
	Market      string    `gorm:"not null;index:idx_market_events_type_market_occurred" json:"market"`
	EventType   string    `gorm:"not null;index:idx_market_events_type_market_occurred" json:"event_type"`
	Direction   string    `json:"direction"`
	Magnitude   float64   `json:"magnitude"`
	Credibility float64   `json:"credibility"`
	OccurredAt  time.Time `gorm:"not null;index:idx_market_events_type_market_occurred" json:"occurred_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the MarketEvent model.
func (MarketEvent) TableName() string {
	return "market_events"
}

// EventOutcome is the realized result of a historical event, recorded once
// the move has resolved. Events without an outcome row are still valid
// similarity candidates; their outcome fields are simply omitted.
type EventOutcome struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EventID      uint      `gorm:"not null;uniqueIndex" json:"event_id"`
	ActualReturn float64   `json:"actual_return"`
	OutcomeLabel string    `json:"outcome_label"`
	ResolvedAt   time.Time `json:"resolved_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the EventOutcome model.
func (EventOutcome) TableName() string {
	return "event_outcomes"
}
