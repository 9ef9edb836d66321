package entity

import (
	"time"

	"github.com/lib/pq"
)

// NewsRecord is a normalized, scored news item for a single stock. Records
// are created by the ingest path and are read-only to the pipeline core.
type NewsRecord struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	StockCode          string         `gorm:"not null;index:idx_news_records_stock_published" json:"stock_code"`
	Market             string         `gorm:"not null" json:"market"`
	Title              string         `json:"title"`
	Source             string         `json:"source"`
	PublishedAt        time.Time      `gorm:"not null;index:idx_news_records_stock_published" json:"published_at"`
	SentimentLabel     string         `json:"sentiment_label"`
	SentimentMagnitude float64        `json:"sentiment_magnitude"`
	Themes             pq.StringArray `gorm:"type:text[]" json:"themes"`
	IsDisclosure       bool           `json:"is_disclosure"`
	CompositeScore     float64        `json:"composite_score"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the NewsRecord model.
func (NewsRecord) TableName() string {
	return "news_records"
}
