package service

import (
	"context"
	"testing"
	"time"

	"stock-feature-pipeline/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrString(s string) *string  { return &s }
func ptrFloat(f float64) *float64 { return &f }

func predictedSnapshot(id uint, stockCode string, date time.Time, direction string) entity.FeatureSnapshot {
	return entity.FeatureSnapshot{
		ID:                 id,
		PredictionDate:     date,
		StockCode:          stockCode,
		Market:             entity.MarketKOSPI,
		PredictedDirection: ptrString(direction),
		PredictedScore:     ptrFloat(72.5),
		Confidence:         ptrFloat(0.8),
	}
}

func TestClassifyDirection(t *testing.T) {
	cases := []struct {
		changePct float64
		want      string
	}{
		{2.0, entity.DirectionUp},
		{1.01, entity.DirectionUp},
		{1.0, entity.DirectionNeutral},
		{0.3, entity.DirectionNeutral},
		{0.0, entity.DirectionNeutral},
		{-1.0, entity.DirectionNeutral},
		{-1.01, entity.DirectionDown},
		{-4.2, entity.DirectionDown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyDirection(tc.changePct, 1.0), "change %.2f", tc.changePct)
	}
}

func TestVerifyDayCorrectUpPrediction(t *testing.T) {
	runDate := kstDate(2026, 3, 2)
	snapshotRepo := &fakeSnapshotRepo{snapshots: []entity.FeatureSnapshot{
		predictedSnapshot(1, "005930", runDate, entity.DirectionUp),
	}}
	priceRepo := &fakePriceRepo{bars: []entity.PriceBar{
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate.AddDate(0, 0, -1), Close: 100},
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate, Close: 102},
	}}
	resultRepo := &fakeResultRepo{}
	runLogRepo := &fakeRunLogRepo{}

	engine := NewVerificationEngine(snapshotRepo, priceRepo, resultRepo, runLogRepo, nil, newTestLogger(t), 1.0)
	runLog, err := engine.VerifyDay(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)

	assert.Equal(t, entity.RunStatusCompleted, runLog.Status)
	assert.Equal(t, 1, runLog.StocksVerified)
	assert.Equal(t, 0, runLog.StocksFailed)

	results, err := resultRepo.FindByRunID(context.Background(), runLog.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	require.NotNil(t, r.ActualChangePct)
	assert.InDelta(t, 2.0, *r.ActualChangePct, 1e-9)
	require.NotNil(t, r.ActualDirection)
	assert.Equal(t, entity.DirectionUp, *r.ActualDirection)
	require.NotNil(t, r.IsCorrect)
	assert.True(t, *r.IsCorrect)

	// The outcome is mirrored onto the snapshot.
	snap := snapshotRepo.byStockDate("005930", runDate)
	require.NotNil(t, snap)
	require.NotNil(t, snap.IsCorrect)
	assert.True(t, *snap.IsCorrect)
	require.NotNil(t, snap.ActualClose)
	assert.InDelta(t, 102.0, *snap.ActualClose, 1e-9)
	assert.NotNil(t, snap.VerifiedAt)
}

func TestVerifyDaySmallMoveIsNeutralAndIncorrect(t *testing.T) {
	runDate := kstDate(2026, 3, 2)
	snapshotRepo := &fakeSnapshotRepo{snapshots: []entity.FeatureSnapshot{
		predictedSnapshot(1, "005930", runDate, entity.DirectionUp),
	}}
	priceRepo := &fakePriceRepo{bars: []entity.PriceBar{
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate.AddDate(0, 0, -1), Close: 100},
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate, Close: 100.3},
	}}
	resultRepo := &fakeResultRepo{}

	engine := NewVerificationEngine(snapshotRepo, priceRepo, resultRepo, &fakeRunLogRepo{}, nil, newTestLogger(t), 1.0)
	runLog, err := engine.VerifyDay(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)
	assert.Equal(t, 1, runLog.StocksVerified)

	results, _ := resultRepo.FindByRunID(context.Background(), runLog.ID)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].ActualDirection)
	assert.Equal(t, entity.DirectionNeutral, *results[0].ActualDirection)
	require.NotNil(t, results[0].IsCorrect)
	assert.False(t, *results[0].IsCorrect)
}

func TestVerifyDayHolidayUsesNextSession(t *testing.T) {
	// Friday prediction; the next bar is Monday.
	friday := kstDate(2026, 3, 6)
	monday := kstDate(2026, 3, 9)
	snapshotRepo := &fakeSnapshotRepo{snapshots: []entity.FeatureSnapshot{
		predictedSnapshot(1, "005930", friday, entity.DirectionDown),
	}}
	priceRepo := &fakePriceRepo{bars: []entity.PriceBar{
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: friday.AddDate(0, 0, -1), Close: 200},
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: monday, Close: 190},
	}}
	resultRepo := &fakeResultRepo{}

	engine := NewVerificationEngine(snapshotRepo, priceRepo, resultRepo, &fakeRunLogRepo{}, nil, newTestLogger(t), 1.0)
	runLog, err := engine.VerifyDay(context.Background(), friday, entity.MarketKOSPI)
	require.NoError(t, err)
	assert.Equal(t, 1, runLog.StocksVerified)

	results, _ := resultRepo.FindByRunID(context.Background(), runLog.ID)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].ActualChangePct)
	assert.InDelta(t, -5.0, *results[0].ActualChangePct, 1e-9)
	require.NotNil(t, results[0].IsCorrect)
	assert.True(t, *results[0].IsCorrect)
}

func TestVerifyDayMissingPriceFailsStockNotRun(t *testing.T) {
	runDate := kstDate(2026, 3, 2)
	snapshotRepo := &fakeSnapshotRepo{snapshots: []entity.FeatureSnapshot{
		predictedSnapshot(1, "005930", runDate, entity.DirectionUp),
		predictedSnapshot(2, "000660", runDate, entity.DirectionUp),
	}}
	// Only 005930 has price data.
	priceRepo := &fakePriceRepo{bars: []entity.PriceBar{
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate.AddDate(0, 0, -1), Close: 100},
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate, Close: 103},
	}}
	resultRepo := &fakeResultRepo{}

	engine := NewVerificationEngine(snapshotRepo, priceRepo, resultRepo, &fakeRunLogRepo{}, nil, newTestLogger(t), 1.0)
	runLog, err := engine.VerifyDay(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)

	assert.Equal(t, entity.RunStatusCompleted, runLog.Status)
	assert.Equal(t, 1, runLog.StocksVerified)
	assert.Equal(t, 1, runLog.StocksFailed)

	results, _ := resultRepo.FindByRunID(context.Background(), runLog.ID)
	require.Len(t, results, 2)
	for _, r := range results {
		if r.StockCode == "000660" {
			assert.Nil(t, r.IsCorrect)
			assert.True(t, r.ErrorMessage.Valid)
		} else {
			require.NotNil(t, r.IsCorrect)
			assert.True(t, *r.IsCorrect)
		}
	}
}

func TestVerifyDayRerunWritesNewGeneration(t *testing.T) {
	runDate := kstDate(2026, 3, 2)
	snapshotRepo := &fakeSnapshotRepo{snapshots: []entity.FeatureSnapshot{
		predictedSnapshot(1, "005930", runDate, entity.DirectionUp),
	}}
	priceRepo := &fakePriceRepo{bars: []entity.PriceBar{
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate.AddDate(0, 0, -1), Close: 100},
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate, Close: 102},
	}}
	resultRepo := &fakeResultRepo{}

	engine := NewVerificationEngine(snapshotRepo, priceRepo, resultRepo, &fakeRunLogRepo{}, nil, newTestLogger(t), 1.0)

	first, err := engine.VerifyDay(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)
	second, err := engine.VerifyDay(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// Both generations persist; the latest one wins reads.
	assert.Len(t, resultRepo.results, 2)
	latest, err := resultRepo.FindLatestGeneration(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, second.ID, latest[0].RunID)
}

func TestVerifyDayUnknownMarket(t *testing.T) {
	engine := NewVerificationEngine(&fakeSnapshotRepo{}, &fakePriceRepo{}, &fakeResultRepo{}, &fakeRunLogRepo{}, nil, newTestLogger(t), 1.0)
	_, err := engine.VerifyDay(context.Background(), kstDate(2026, 3, 2), "NYSE")
	assert.ErrorIs(t, err, ErrUnknownMarket)
}

func TestVerifyDayNoPredictionsCompletesEmpty(t *testing.T) {
	runDate := kstDate(2026, 3, 2)
	engine := NewVerificationEngine(&fakeSnapshotRepo{}, &fakePriceRepo{}, &fakeResultRepo{}, &fakeRunLogRepo{}, nil, newTestLogger(t), 1.0)

	runLog, err := engine.VerifyDay(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusCompleted, runLog.Status)
	assert.Equal(t, 0, runLog.StocksVerified)
	assert.Equal(t, 0, runLog.StocksFailed)
}

func TestVerifyDaySendsSummaryNotification(t *testing.T) {
	runDate := kstDate(2026, 3, 2)
	snapshotRepo := &fakeSnapshotRepo{snapshots: []entity.FeatureSnapshot{
		predictedSnapshot(1, "005930", runDate, entity.DirectionUp),
	}}
	priceRepo := &fakePriceRepo{bars: []entity.PriceBar{
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate.AddDate(0, 0, -1), Close: 100},
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: runDate, Close: 102},
	}}
	notifier := &fakeNotifier{}

	engine := NewVerificationEngine(snapshotRepo, priceRepo, &fakeResultRepo{}, &fakeRunLogRepo{}, notifier, newTestLogger(t), 1.0)
	_, err := engine.VerifyDay(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Verification Run Completed")
	assert.Contains(t, notifier.messages[0], "Verified: 1")
}

func TestVerifyDayWithUTCScannedDates(t *testing.T) {
	runDate := kstDate(2026, 3, 2)
	// Dates as the driver scans them off DATE columns: UTC midnights.
	snapshotRepo := &fakeSnapshotRepo{snapshots: []entity.FeatureSnapshot{
		predictedSnapshot(1, "005930", utcDate(2026, 3, 2), entity.DirectionUp),
	}}
	priceRepo := &fakePriceRepo{bars: []entity.PriceBar{
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: utcDate(2026, 3, 1), Close: 100},
		{StockCode: "005930", Market: entity.MarketKOSPI, TradeDate: utcDate(2026, 3, 2), Close: 102},
	}}
	resultRepo := &fakeResultRepo{}

	engine := NewVerificationEngine(snapshotRepo, priceRepo, resultRepo, &fakeRunLogRepo{}, nil, newTestLogger(t), 1.0)
	runLog, err := engine.VerifyDay(context.Background(), runDate, entity.MarketKOSPI)
	require.NoError(t, err)
	assert.Equal(t, 1, runLog.StocksVerified)
	assert.Equal(t, 0, runLog.StocksFailed)

	results, _ := resultRepo.FindByRunID(context.Background(), runLog.ID)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].ActualChangePct)
	assert.InDelta(t, 2.0, *results[0].ActualChangePct, 1e-9, "previous close is the prior session, not the run date itself")
	require.NotNil(t, results[0].IsCorrect)
	assert.True(t, *results[0].IsCorrect)
}
