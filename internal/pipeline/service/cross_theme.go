package service

import (
	"context"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/pkg/utils"
)

// CrossThemeService computes, for a stock and theme, the average composite
// score of the *other* stocks sharing the theme inside a lookback window.
type CrossThemeService interface {
	Score(ctx context.Context, theme, stockCode, market string, date time.Time, lookbackDays int) (float64, error)
	ScoreBatch(ctx context.Context, market string, date time.Time, lookbackDays int) (map[string]map[string]float64, error)
	ScoreForStock(ctx context.Context, stockCode, market string, date time.Time, lookbackDays int) (float64, error)
}

// NewCrossThemeService creates a new cross-theme aggregator.
func NewCrossThemeService(newsRepo repository.NewsRepository) CrossThemeService {
	return &crossThemeService{newsRepo: newsRepo}
}

type crossThemeService struct {
	newsRepo repository.NewsRepository
}

type themeTotals struct {
	sum   float64
	count int
}

// Score computes the peer average for one (theme, stock). Returns 0.0 when
// the theme is empty or no peer published scored news in the window.
func (s *crossThemeService) Score(ctx context.Context, theme, stockCode, market string, date time.Time, lookbackDays int) (float64, error) {
	if theme == "" {
		return 0, nil
	}
	if !entity.IsValidMarket(market) {
		return 0, ErrUnknownMarket
	}

	rows, err := s.fetchWindow(ctx, market, date, lookbackDays)
	if err != nil {
		return 0, err
	}

	var t themeTotals
	for _, row := range rows {
		if row.Theme != theme || row.StockCode == stockCode {
			continue
		}
		t.sum += row.Score
		t.count++
	}
	if t.count == 0 {
		return 0, nil
	}
	return round2(t.sum / float64(t.count)), nil
}

// ScoreBatch computes the peer average for every (stock, theme) pair active
// in the window in one pass, keyed stock -> theme -> score. Excluding a
// stock's own rows reduces to subtracting its totals from the theme totals.
func (s *crossThemeService) ScoreBatch(ctx context.Context, market string, date time.Time, lookbackDays int) (map[string]map[string]float64, error) {
	if !entity.IsValidMarket(market) {
		return nil, ErrUnknownMarket
	}

	rows, err := s.fetchWindow(ctx, market, date, lookbackDays)
	if err != nil {
		return nil, err
	}

	byTheme := make(map[string]themeTotals)
	byStockTheme := make(map[string]map[string]themeTotals)
	for _, row := range rows {
		t := byTheme[row.Theme]
		t.sum += row.Score
		t.count++
		byTheme[row.Theme] = t

		if byStockTheme[row.StockCode] == nil {
			byStockTheme[row.StockCode] = make(map[string]themeTotals)
		}
		st := byStockTheme[row.StockCode][row.Theme]
		st.sum += row.Score
		st.count++
		byStockTheme[row.StockCode][row.Theme] = st
	}

	scores := make(map[string]map[string]float64, len(byStockTheme))
	for stock, themes := range byStockTheme {
		scores[stock] = make(map[string]float64, len(themes))
		for theme, own := range themes {
			total := byTheme[theme]
			peerCount := total.count - own.count
			if peerCount <= 0 {
				scores[stock][theme] = 0
				continue
			}
			scores[stock][theme] = round2((total.sum - own.sum) / float64(peerCount))
		}
	}
	return scores, nil
}

// ScoreForStock averages the peer scores across every theme the stock was
// tagged with inside the window; 0.0 when the stock had no themed news.
func (s *crossThemeService) ScoreForStock(ctx context.Context, stockCode, market string, date time.Time, lookbackDays int) (float64, error) {
	scores, err := s.ScoreBatch(ctx, market, date, lookbackDays)
	if err != nil {
		return 0, err
	}
	themes, ok := scores[stockCode]
	if !ok || len(themes) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range themes {
		sum += v
	}
	return round2(sum / float64(len(themes))), nil
}

func (s *crossThemeService) fetchWindow(ctx context.Context, market string, date time.Time, lookbackDays int) ([]repository.ThemeScoreRow, error) {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	to := utils.DateOnly(date).AddDate(0, 0, 1).Add(-time.Nanosecond)
	from := utils.DateOnly(date).AddDate(0, 0, -lookbackDays)
	return s.newsRepo.FindThemeScoresInWindow(ctx, market, from, to)
}
