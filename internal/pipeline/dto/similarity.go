package dto

// SimilarityConfig controls the candidate pool and ranking of the event
// similarity retriever.
type SimilarityConfig struct {
	LookbackDays        int     `json:"lookback_days"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	MaxResults          int     `json:"max_results"`
	SameMarketOnly      bool    `json:"same_market_only"`
}

// DefaultSimilarityConfig returns the retriever defaults.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		LookbackDays:        365,
		SimilarityThreshold: 0.5,
		MaxResults:          3,
		SameMarketOnly:      true,
	}
}

// SimilarEvent is one ranked analog with its similarity score and, when the
// historical event has resolved, the realized outcome.
type SimilarEvent struct {
	EventID      uint     `json:"event_id"`
	StockCode    string   `json:"stock_code"`
	Market       string   `json:"market"`
	EventType    string   `json:"event_type"`
	Direction    string   `json:"direction"`
	Magnitude    float64  `json:"magnitude"`
	Similarity   float64  `json:"similarity"`
	ActualReturn *float64 `json:"actual_return,omitempty"`
	OutcomeLabel *string  `json:"outcome_label,omitempty"`
}
