package dto

import "time"

// TriggerJobRequest asks for a manual pipeline run.
type TriggerJobRequest struct {
	Market     string  `json:"market"`
	TargetDate string  `json:"target_date"` // YYYY-MM-DD, defaults to today
	DateFrom   *string `json:"date_from,omitempty"`
}

// TriggerJobResponse acknowledges an enqueued job.
type TriggerJobResponse struct {
	Type       string    `json:"type"`
	Market     string    `json:"market"`
	TargetDate time.Time `json:"target_date"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// SetIndicatorsRequest publishes the market-wide indicators for one date.
type SetIndicatorsRequest struct {
	Market         string  `json:"market"`
	Date           string  `json:"date"` // YYYY-MM-DD
	MarketReturn   float64 `json:"market_return"`
	VixChange      float64 `json:"vix_change"`
	FxChange       float64 `json:"fx_change"`
	PeerDisclosure bool    `json:"peer_disclosure"`
}

// SimilarEventsRequest describes the reference event for a similarity query.
type SimilarEventsRequest struct {
	EventType      string   `json:"event_type"`
	Market         string   `json:"market"`
	Direction      string   `json:"direction"`
	Magnitude      float64  `json:"magnitude"`
	Credibility    float64  `json:"credibility"`
	ReferenceDate  string   `json:"reference_date"` // YYYY-MM-DD
	LookbackDays   *int     `json:"lookback_days,omitempty"`
	Threshold      *float64 `json:"similarity_threshold,omitempty"`
	MaxResults     *int     `json:"max_results,omitempty"`
	SameMarketOnly *bool    `json:"same_market_only,omitempty"`
}

// SaveModelRequest registers a trained model artifact.
type SaveModelRequest struct {
	Name           string             `json:"name"`
	Version        string             `json:"version"`
	Market         string             `json:"market"`
	FeatureTier    int                `json:"feature_tier"`
	Metrics        map[string]float64 `json:"metrics"`
	ArtifactBase64 string             `json:"artifact_base64"`
	ArtifactPath   string             `json:"artifact_path"`
}

// IngestNewsRequest submits one raw news item for classification and scoring.
type IngestNewsRequest struct {
	StockCode    string `json:"stock_code"`
	Market       string `json:"market"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Source       string `json:"source"`
	IsDisclosure bool   `json:"is_disclosure"`
	PublishedAt  string `json:"published_at"` // RFC3339
}

// FeatureTierResponse describes one feature tier.
type FeatureTierResponse struct {
	Tier       int      `json:"tier"`
	Features   []string `json:"features"`
	MinSamples int      `json:"min_samples"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
