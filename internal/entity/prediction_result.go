package entity

import (
	"database/sql"
	"time"
)

// Verification run statuses.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// DailyPredictionResult is one verification judgment for a (prediction_date,
// stock_code) pair. Rows are append-only: a rerun for the same date writes a
// new generation tied to its own run log.
type DailyPredictionResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RunID          uint      `gorm:"not null;index" json:"run_id"`
	PredictionDate time.Time `gorm:"type:date;not null;index:idx_prediction_results_date_market" json:"prediction_date"`
	StockCode      string    `gorm:"not null" json:"stock_code"`
	Market         string    `gorm:"not null;index:idx_prediction_results_date_market" json:"market"`

	PredictedDirection string   `json:"predicted_direction"`
	PredictedScore     float64  `json:"predicted_score"`
	Confidence         float64  `json:"confidence"`
	ActualClose        *float64 `json:"actual_close,omitempty"`
	ActualChangePct    *float64 `json:"actual_change_pct,omitempty"`
	ActualDirection    *string  `json:"actual_direction,omitempty"`
	IsCorrect          *bool    `json:"is_correct,omitempty"`

	ErrorMessage sql.NullString `json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the DailyPredictionResult model.
func (DailyPredictionResult) TableName() string {
	return "daily_prediction_results"
}

// VerificationRunLog is the append-only audit row for one verification run.
type VerificationRunLog struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	RunDate        time.Time      `gorm:"type:date;not null;index:idx_verification_run_logs_date_market" json:"run_date"`
	Market         string         `gorm:"not null;index:idx_verification_run_logs_date_market" json:"market"`
	Status         string         `gorm:"not null" json:"status"`
	StocksVerified int            `json:"stocks_verified"`
	StocksFailed   int            `json:"stocks_failed"`
	DurationSecs   float64        `json:"duration_seconds"`
	ErrorDetails   sql.NullString `json:"error_details,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    sql.NullTime   `json:"completed_at,omitempty"`
}

// TableName specifies the table name for the VerificationRunLog model.
func (VerificationRunLog) TableName() string {
	return "verification_run_logs"
}
