package entity

import "time"

// ThemeAccuracyRecord rolls one day's verification judgments up to a single
// theme within a market. Recomputed by upsert whenever aggregation reruns.
type ThemeAccuracyRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PredictionDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_theme_accuracy_date_theme_market" json:"prediction_date"`
	Theme          string    `gorm:"not null;uniqueIndex:idx_theme_accuracy_date_theme_market" json:"theme"`
	Market         string    `gorm:"not null;uniqueIndex:idx_theme_accuracy_date_theme_market" json:"market"`

	TotalStocks        int      `json:"total_stocks"`
	CorrectCount       int      `json:"correct_count"`
	AccuracyRate       float64  `json:"accuracy_rate"`
	AvgPredictedScore  float64  `json:"avg_predicted_score"`
	AvgActualChangePct *float64 `json:"avg_actual_change_pct,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the ThemeAccuracyRecord model.
func (ThemeAccuracyRecord) TableName() string {
	return "theme_accuracy_records"
}
