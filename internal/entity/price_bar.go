package entity

import "time"

// PriceBar is one daily OHLCV bar. Uniqueness on (stock_code, trade_date) is
// enforced by the storage layer.
type PriceBar struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StockCode string    `gorm:"not null;uniqueIndex:idx_price_bars_stock_date" json:"stock_code"`
	Market    string    `gorm:"not null" json:"market"`
	TradeDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_price_bars_stock_date" json:"trade_date"`
	Open      *float64  `json:"open,omitempty"`
	High      *float64  `json:"high,omitempty"`
	Low       *float64  `json:"low,omitempty"`
	Close     float64   `gorm:"not null" json:"close"`
	Volume    int64     `gorm:"not null" json:"volume"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the PriceBar model.
func (PriceBar) TableName() string {
	return "price_bars"
}
