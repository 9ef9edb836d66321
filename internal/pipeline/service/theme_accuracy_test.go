package service

import (
	"context"
	"testing"
	"time"

	"stock-feature-pipeline/internal/entity"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func judgedResult(runID uint, stockCode string, date time.Time, correct bool, score, changePct float64) entity.DailyPredictionResult {
	isCorrect := correct
	return entity.DailyPredictionResult{
		RunID:           runID,
		PredictionDate:  date,
		StockCode:       stockCode,
		Market:          entity.MarketKOSPI,
		PredictedScore:  score,
		IsCorrect:       &isCorrect,
		ActualChangePct: &changePct,
	}
}

func TestAggregateThemesCountsDistinctJudgedStocks(t *testing.T) {
	date := kstDate(2026, 3, 2)
	resultRepo := &fakeResultRepo{results: []entity.DailyPredictionResult{
		judgedResult(1, "005930", date, true, 80, 2.0),
		judgedResult(1, "000660", date, false, 60, 0.2),
		judgedResult(1, "051910", date, true, 70, 1.5),
	}}
	newsRepo := &fakeNewsRepo{records: []entity.NewsRecord{
		// 005930 tagged semiconductor twice; still one stock for the theme.
		{StockCode: "005930", Market: entity.MarketKOSPI, Themes: pq.StringArray{"semiconductor"}, PublishedAt: date.Add(-20 * time.Hour)},
		{StockCode: "005930", Market: entity.MarketKOSPI, Themes: pq.StringArray{"semiconductor"}, PublishedAt: date.Add(-40 * time.Hour)},
		{StockCode: "000660", Market: entity.MarketKOSPI, Themes: pq.StringArray{"semiconductor"}, PublishedAt: date.Add(-30 * time.Hour)},
		{StockCode: "051910", Market: entity.MarketKOSPI, Themes: pq.StringArray{"battery"}, PublishedAt: date.Add(-10 * time.Hour)},
	}}
	themeRepo := &fakeThemeRepo{}

	agg := NewThemeAccuracyAggregator(resultRepo, newsRepo, themeRepo, newTestLogger(t), 7)
	records, err := agg.AggregateThemes(context.Background(), date, entity.MarketKOSPI)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Sorted by theme name.
	battery, semis := records[0], records[1]
	assert.Equal(t, "battery", battery.Theme)
	assert.Equal(t, 1, battery.TotalStocks)
	assert.Equal(t, 1, battery.CorrectCount)
	assert.Equal(t, 1.0, battery.AccuracyRate)

	assert.Equal(t, "semiconductor", semis.Theme)
	assert.Equal(t, 2, semis.TotalStocks)
	assert.Equal(t, 1, semis.CorrectCount)
	assert.Equal(t, 0.5, semis.AccuracyRate)
	assert.InDelta(t, 70.0, semis.AvgPredictedScore, 1e-9)
	require.NotNil(t, semis.AvgActualChangePct)
	assert.InDelta(t, 1.1, *semis.AvgActualChangePct, 1e-9)
}

func TestAggregateThemesStockWithMultipleThemesCountsInEach(t *testing.T) {
	date := kstDate(2026, 3, 2)
	resultRepo := &fakeResultRepo{results: []entity.DailyPredictionResult{
		judgedResult(1, "005930", date, true, 80, 2.0),
	}}
	newsRepo := &fakeNewsRepo{records: []entity.NewsRecord{
		{StockCode: "005930", Market: entity.MarketKOSPI, Themes: pq.StringArray{"semiconductor", "ai"}, PublishedAt: date.Add(-5 * time.Hour)},
	}}
	themeRepo := &fakeThemeRepo{}

	agg := NewThemeAccuracyAggregator(resultRepo, newsRepo, themeRepo, newTestLogger(t), 7)
	records, err := agg.AggregateThemes(context.Background(), date, entity.MarketKOSPI)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, 1, r.TotalStocks)
		assert.Equal(t, 1, r.CorrectCount)
	}
}

func TestAggregateThemesSkipsUnjudgedResults(t *testing.T) {
	date := kstDate(2026, 3, 2)
	unjudged := entity.DailyPredictionResult{
		RunID: 1, PredictionDate: date, StockCode: "000660", Market: entity.MarketKOSPI, PredictedScore: 55,
	}
	resultRepo := &fakeResultRepo{results: []entity.DailyPredictionResult{
		judgedResult(1, "005930", date, true, 80, 2.0),
		unjudged,
	}}
	newsRepo := &fakeNewsRepo{records: []entity.NewsRecord{
		{StockCode: "005930", Market: entity.MarketKOSPI, Themes: pq.StringArray{"ai"}, PublishedAt: date.Add(-5 * time.Hour)},
		{StockCode: "000660", Market: entity.MarketKOSPI, Themes: pq.StringArray{"ai"}, PublishedAt: date.Add(-6 * time.Hour)},
	}}
	themeRepo := &fakeThemeRepo{}

	agg := NewThemeAccuracyAggregator(resultRepo, newsRepo, themeRepo, newTestLogger(t), 7)
	records, err := agg.AggregateThemes(context.Background(), date, entity.MarketKOSPI)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].TotalStocks, "the unjudged stock does not count")
}

func TestAggregateThemesUsesLatestGenerationOnly(t *testing.T) {
	date := kstDate(2026, 3, 2)
	resultRepo := &fakeResultRepo{results: []entity.DailyPredictionResult{
		judgedResult(1, "005930", date, false, 80, -2.0),
		judgedResult(2, "005930", date, true, 80, 2.0),
	}}
	newsRepo := &fakeNewsRepo{records: []entity.NewsRecord{
		{StockCode: "005930", Market: entity.MarketKOSPI, Themes: pq.StringArray{"ai"}, PublishedAt: date.Add(-5 * time.Hour)},
	}}
	themeRepo := &fakeThemeRepo{}

	agg := NewThemeAccuracyAggregator(resultRepo, newsRepo, themeRepo, newTestLogger(t), 7)
	records, err := agg.AggregateThemes(context.Background(), date, entity.MarketKOSPI)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].CorrectCount, "stale generation is ignored")
}

func TestAggregateThemesRerunOverwrites(t *testing.T) {
	date := kstDate(2026, 3, 2)
	resultRepo := &fakeResultRepo{results: []entity.DailyPredictionResult{
		judgedResult(1, "005930", date, true, 80, 2.0),
	}}
	newsRepo := &fakeNewsRepo{records: []entity.NewsRecord{
		{StockCode: "005930", Market: entity.MarketKOSPI, Themes: pq.StringArray{"ai"}, PublishedAt: date.Add(-5 * time.Hour)},
	}}
	themeRepo := &fakeThemeRepo{}

	agg := NewThemeAccuracyAggregator(resultRepo, newsRepo, themeRepo, newTestLogger(t), 7)
	_, err := agg.AggregateThemes(context.Background(), date, entity.MarketKOSPI)
	require.NoError(t, err)
	_, err = agg.AggregateThemes(context.Background(), date, entity.MarketKOSPI)
	require.NoError(t, err)

	rows, err := themeRepo.FindByDate(context.Background(), date, entity.MarketKOSPI)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "rerun upserts instead of duplicating")
}

func TestAggregateThemesNoJudgedResults(t *testing.T) {
	agg := NewThemeAccuracyAggregator(&fakeResultRepo{}, &fakeNewsRepo{}, &fakeThemeRepo{}, newTestLogger(t), 7)
	records, err := agg.AggregateThemes(context.Background(), kstDate(2026, 3, 2), entity.MarketKOSPI)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAggregateThemesUnknownMarket(t *testing.T) {
	agg := NewThemeAccuracyAggregator(&fakeResultRepo{}, &fakeNewsRepo{}, &fakeThemeRepo{}, newTestLogger(t), 7)
	_, err := agg.AggregateThemes(context.Background(), kstDate(2026, 3, 2), "TSE")
	assert.ErrorIs(t, err, ErrUnknownMarket)
}
