package dto

import "time"

// RawNews is a normalized, unscored news record as delivered by an external
// fetcher.
type RawNews struct {
	StockCode    string    `json:"stock_code"`
	Market       string    `json:"market"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Source       string    `json:"source"`
	PublishedAt  time.Time `json:"published_at"`
	IsDisclosure bool      `json:"is_disclosure"`
}

// NewsClassification is the scoring oracle's verdict for one news item.
type NewsClassification struct {
	SentimentLabel     string   `json:"sentiment_label"`
	SentimentMagnitude float64  `json:"sentiment_magnitude"`
	Themes             []string `json:"themes"`
	Confidence         float64  `json:"confidence"`
}

// MarketIndicators are the market-wide values for one (market, date),
// populated by an indicator feed and consulted by the snapshot builder.
type MarketIndicators struct {
	MarketReturn   float64 `json:"market_return"`
	VixChange      float64 `json:"vix_change"`
	FxChange       float64 `json:"fx_change"`
	PeerDisclosure bool    `json:"peer_disclosure"`
}
