package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/utils"
)

// ThemeAccuracyAggregator rolls one day's verification judgments up to
// per-theme accuracy statistics. Safe to re-invoke: rows are upserted on
// (prediction_date, theme, market).
type ThemeAccuracyAggregator interface {
	AggregateThemes(ctx context.Context, runDate time.Time, market string) ([]entity.ThemeAccuracyRecord, error)
}

// NewThemeAccuracyAggregator creates a theme accuracy aggregator.
func NewThemeAccuracyAggregator(
	resultRepo repository.PredictionResultRepository,
	newsRepo repository.NewsRepository,
	themeRepo repository.ThemeAccuracyRepository,
	log *logger.Logger,
	themeLookbackDays int,
) ThemeAccuracyAggregator {
	if themeLookbackDays <= 0 {
		themeLookbackDays = 7
	}
	return &themeAccuracyAggregator{
		resultRepo:   resultRepo,
		newsRepo:     newsRepo,
		themeRepo:    themeRepo,
		logger:       log,
		lookbackDays: themeLookbackDays,
	}
}

type themeAccuracyAggregator struct {
	resultRepo   repository.PredictionResultRepository
	newsRepo     repository.NewsRepository
	themeRepo    repository.ThemeAccuracyRepository
	logger       *logger.Logger
	lookbackDays int
}

// AggregateThemes computes and upserts one record per theme active among the
// day's judged stocks. Only the latest result generation feeds the rollup,
// and only rows with a non-nil correctness flag count.
func (a *themeAccuracyAggregator) AggregateThemes(ctx context.Context, runDate time.Time, market string) ([]entity.ThemeAccuracyRecord, error) {
	if !entity.IsValidMarket(market) {
		return nil, ErrUnknownMarket
	}
	runDate = utils.DateOnly(runDate)

	results, err := a.resultRepo.FindLatestGeneration(ctx, runDate, market)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	judged := make(map[string]entity.DailyPredictionResult)
	stockCodes := make([]string, 0, len(results))
	for _, r := range results {
		if r.IsCorrect == nil {
			continue
		}
		judged[r.StockCode] = r
		stockCodes = append(stockCodes, r.StockCode)
	}
	if len(judged) == 0 {
		return nil, nil
	}

	windowEnd := runDate.AddDate(0, 0, 1).Add(-time.Nanosecond)
	windowStart := runDate.AddDate(0, 0, -a.lookbackDays)
	themeRows, err := a.newsRepo.FindStockThemesInWindow(ctx, market, stockCodes, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock themes: %w", err)
	}

	// Union the judged stocks per theme; a stock carrying several theme tags
	// contributes to each of them.
	stocksByTheme := make(map[string]map[string]struct{})
	for _, row := range themeRows {
		if _, ok := judged[row.StockCode]; !ok {
			continue
		}
		if stocksByTheme[row.Theme] == nil {
			stocksByTheme[row.Theme] = make(map[string]struct{})
		}
		stocksByTheme[row.Theme][row.StockCode] = struct{}{}
	}

	themes := make([]string, 0, len(stocksByTheme))
	for theme := range stocksByTheme {
		themes = append(themes, theme)
	}
	sort.Strings(themes)

	records := make([]*entity.ThemeAccuracyRecord, 0, len(themes))
	for _, theme := range themes {
		records = append(records, a.buildRecord(runDate, theme, market, stocksByTheme[theme], judged))
	}

	if err := a.themeRepo.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to upsert theme accuracy: %w", err)
	}

	out := make([]entity.ThemeAccuracyRecord, len(records))
	for i, r := range records {
		out[i] = *r
	}
	a.logger.Info("Theme accuracy aggregated",
		logger.StringField("market", market),
		logger.StringField("run_date", runDate.Format("2006-01-02")),
		logger.IntField("themes", len(out)))
	return out, nil
}

func (a *themeAccuracyAggregator) buildRecord(runDate time.Time, theme, market string, stocks map[string]struct{}, judged map[string]entity.DailyPredictionResult) *entity.ThemeAccuracyRecord {
	var (
		correct     int
		scoreSum    float64
		changeSum   float64
		changeCount int
	)
	for code := range stocks {
		r := judged[code]
		if r.IsCorrect != nil && *r.IsCorrect {
			correct++
		}
		scoreSum += r.PredictedScore
		if r.ActualChangePct != nil {
			changeSum += *r.ActualChangePct
			changeCount++
		}
	}

	total := len(stocks)
	record := &entity.ThemeAccuracyRecord{
		PredictionDate:    runDate,
		Theme:             theme,
		Market:            market,
		TotalStocks:       total,
		CorrectCount:      correct,
		AccuracyRate:      round4(float64(correct) / float64(total)),
		AvgPredictedScore: round2(scoreSum / float64(total)),
	}
	if changeCount > 0 {
		avgChange := round2(changeSum / float64(changeCount))
		record.AvgActualChangePct = &avgChange
	}
	return record
}
