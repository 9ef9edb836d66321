package entity

import "time"

// FeatureSnapshot is one immutable training row per (prediction_date,
// stock_code), capturing every feature known as of the prediction date.
// Only the outcome fields are ever mutated, and only by the verification
// engine after the snapshot's date has closed.
type FeatureSnapshot struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PredictionDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_feature_snapshots_date_stock" json:"prediction_date"`
	StockCode      string    `gorm:"not null;uniqueIndex:idx_feature_snapshots_date_stock" json:"stock_code"`
	Market         string    `gorm:"not null;index" json:"market"`

	// News features.
	NewsScore       float64 `json:"news_score"`
	SentimentScore  float64 `json:"sentiment_score"`
	NewsCount       int     `json:"news_count"`
	NewsCount3D     int     `json:"news_count_3d"`
	AvgScore3D      float64 `json:"avg_score_3d"`
	DisclosureRatio float64 `json:"disclosure_ratio"`
	SentimentTrend  float64 `json:"sentiment_trend"`
	CrossThemeScore float64 `json:"cross_theme_score"`

	// Price features.
	PrevClose     float64 `json:"prev_close"`
	PrevChangePct float64 `json:"prev_change_pct"`
	PriceChange1D float64 `json:"price_change_1d"`
	PriceChange3D float64 `json:"price_change_3d"`
	PriceChange5D float64 `json:"price_change_5d"`
	MA5Ratio      float64 `json:"ma5_ratio"`
	MA20Ratio     float64 `json:"ma20_ratio"`
	Volatility5D  float64 `json:"volatility_5d"`
	Volatility20D float64 `json:"volatility_20d"`
	RSI14         float64 `json:"rsi_14"`
	BBPosition    float64 `json:"bb_position"`
	DollarVolume  float64 `json:"dollar_volume"`

	// Market-wide features. Null until an indicator feed is wired for the
	// date; readers must treat absence as "unknown", not zero.
	MarketReturn   *float64 `json:"market_return,omitempty"`
	VixChange      *float64 `json:"vix_change,omitempty"`
	FxChange       *float64 `json:"fx_change,omitempty"`
	PeerDisclosure *bool    `json:"peer_disclosure,omitempty"`

	// Prediction, written externally by the model-serving path.
	PredictedDirection *string  `json:"predicted_direction,omitempty"`
	PredictedScore     *float64 `json:"predicted_score,omitempty"`
	Confidence         *float64 `json:"confidence,omitempty"`

	// Realized outcome, written only by the verification engine.
	ActualClose     *float64   `json:"actual_close,omitempty"`
	ActualChangePct *float64   `json:"actual_change_pct,omitempty"`
	ActualDirection *string    `json:"actual_direction,omitempty"`
	IsCorrect       *bool      `json:"is_correct,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the FeatureSnapshot model.
func (FeatureSnapshot) TableName() string {
	return "feature_snapshots"
}
