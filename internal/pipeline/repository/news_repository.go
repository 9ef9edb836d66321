package repository

import (
	"context"
	"time"

	"stock-feature-pipeline/internal/entity"

	"gorm.io/gorm"
)

// ThemeScoreRow is one (stock, theme, score) tuple produced by unnesting the
// theme tags of scored news inside a window.
type ThemeScoreRow struct {
	StockCode string  `json:"stock_code"`
	Theme     string  `json:"theme"`
	Score     float64 `json:"score"`
}

// StockThemeRow is one distinct (stock, theme) pairing inside a window.
type StockThemeRow struct {
	StockCode string `json:"stock_code"`
	Theme     string `json:"theme"`
}

// NewsRepository defines the interface for interacting with scored news.
type NewsRepository interface {
	Create(ctx context.Context, record *entity.NewsRecord) error
	FindByStockInWindow(ctx context.Context, stockCode string, from, to time.Time) ([]entity.NewsRecord, error)
	CountByStockOnDate(ctx context.Context, stockCode string, date time.Time) (int64, error)
	FindThemeScoresInWindow(ctx context.Context, market string, from, to time.Time) ([]ThemeScoreRow, error)
	FindStockThemesInWindow(ctx context.Context, market string, stockCodes []string, from, to time.Time) ([]StockThemeRow, error)
}

// NewNewsRepository creates a new GORM-based news repository.
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepository{db: db}
}

type newsRepository struct {
	db *gorm.DB
}

// Create saves a scored news record.
func (r *newsRepository) Create(ctx context.Context, record *entity.NewsRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByStockInWindow retrieves a stock's news published inside [from, to],
// ordered by publish time.
func (r *newsRepository) FindByStockInWindow(ctx context.Context, stockCode string, from, to time.Time) ([]entity.NewsRecord, error) {
	var records []entity.NewsRecord
	err := r.db.WithContext(ctx).
		Where("stock_code = ? AND published_at >= ? AND published_at <= ?", stockCode, from, to).
		Order("published_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountByStockOnDate counts a stock's news published on the given calendar day.
func (r *newsRepository) CountByStockOnDate(ctx context.Context, stockCode string, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.NewsRecord{}).
		Where("stock_code = ? AND published_at::date = ?::date", stockCode, date).
		Count(&count).Error
	return count, err
}

// FindThemeScoresInWindow unnests theme tags and returns one row per
// (stock, theme, score) for every scored news item inside the window.
func (r *newsRepository) FindThemeScoresInWindow(ctx context.Context, market string, from, to time.Time) ([]ThemeScoreRow, error) {
	var rows []ThemeScoreRow
	err := r.db.WithContext(ctx).Raw(`
	SELECT
		nr.stock_code,
		t.theme,
		nr.composite_score AS score
	FROM news_records AS nr
	CROSS JOIN LATERAL unnest(nr.themes) AS t(theme)
	WHERE nr.market = ?
	AND nr.published_at >= ?
	AND nr.published_at <= ?
`, market, from, to).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindStockThemesInWindow returns the distinct (stock, theme) pairs for the
// given stocks inside the window.
func (r *newsRepository) FindStockThemesInWindow(ctx context.Context, market string, stockCodes []string, from, to time.Time) ([]StockThemeRow, error) {
	if len(stockCodes) == 0 {
		return nil, nil
	}
	var rows []StockThemeRow
	err := r.db.WithContext(ctx).Raw(`
	SELECT DISTINCT
		nr.stock_code,
		t.theme
	FROM news_records AS nr
	CROSS JOIN LATERAL unnest(nr.themes) AS t(theme)
	WHERE nr.market = ?
	AND nr.stock_code IN ?
	AND nr.published_at >= ?
	AND nr.published_at <= ?
`, market, stockCodes, from, to).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
