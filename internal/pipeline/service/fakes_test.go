package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/utils"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)
	return log
}

func kstDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, utils.LocationKST())
}

// --- news ---

type fakeNewsRepo struct {
	records []entity.NewsRecord
	nextID  uint
}

func (f *fakeNewsRepo) Create(_ context.Context, record *entity.NewsRecord) error {
	f.nextID++
	record.ID = f.nextID
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeNewsRepo) FindByStockInWindow(_ context.Context, stockCode string, from, to time.Time) ([]entity.NewsRecord, error) {
	var out []entity.NewsRecord
	for _, r := range f.records {
		if r.StockCode != stockCode {
			continue
		}
		if r.PublishedAt.Before(from) || r.PublishedAt.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeNewsRepo) CountByStockOnDate(_ context.Context, stockCode string, date time.Time) (int64, error) {
	var n int64
	for _, r := range f.records {
		if r.StockCode == stockCode && utils.SameDate(r.PublishedAt, date) {
			n++
		}
	}
	return n, nil
}

func (f *fakeNewsRepo) FindThemeScoresInWindow(_ context.Context, market string, from, to time.Time) ([]repository.ThemeScoreRow, error) {
	var rows []repository.ThemeScoreRow
	for _, r := range f.records {
		if r.Market != market || r.PublishedAt.Before(from) || r.PublishedAt.After(to) {
			continue
		}
		for _, theme := range r.Themes {
			rows = append(rows, repository.ThemeScoreRow{StockCode: r.StockCode, Theme: theme, Score: r.CompositeScore})
		}
	}
	return rows, nil
}

func (f *fakeNewsRepo) FindStockThemesInWindow(_ context.Context, market string, stockCodes []string, from, to time.Time) ([]repository.StockThemeRow, error) {
	wanted := make(map[string]struct{}, len(stockCodes))
	for _, code := range stockCodes {
		wanted[code] = struct{}{}
	}
	seen := make(map[string]struct{})
	var rows []repository.StockThemeRow
	for _, r := range f.records {
		if r.Market != market || r.PublishedAt.Before(from) || r.PublishedAt.After(to) {
			continue
		}
		if _, ok := wanted[r.StockCode]; !ok {
			continue
		}
		for _, theme := range r.Themes {
			key := r.StockCode + "|" + theme
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rows = append(rows, repository.StockThemeRow{StockCode: r.StockCode, Theme: theme})
		}
	}
	return rows, nil
}

// DATE columns compare date-wise in SQL, with query bounds taken in the
// connection's Asia/Seoul session zone. The fakes mirror that: a stored date
// keeps its calendar fields, a bound is reduced to its KST day.
func storedDay(t time.Time) string { return t.Format("2006-01-02") }
func boundDay(t time.Time) string  { return t.In(utils.LocationKST()).Format("2006-01-02") }

// --- prices ---

type fakePriceRepo struct {
	bars []entity.PriceBar
}

func (f *fakePriceRepo) CreateIgnoreConflict(_ context.Context, bar *entity.PriceBar) error {
	for _, b := range f.bars {
		if b.StockCode == bar.StockCode && utils.SameDate(b.TradeDate, bar.TradeDate) {
			return nil
		}
	}
	f.bars = append(f.bars, *bar)
	return nil
}

func (f *fakePriceRepo) FindRange(_ context.Context, stockCode string, from, to time.Time) ([]entity.PriceBar, error) {
	var out []entity.PriceBar
	for _, b := range f.bars {
		if b.StockCode != stockCode || storedDay(b.TradeDate) < boundDay(from) || storedDay(b.TradeDate) > boundDay(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.Before(out[j].TradeDate) })
	return out, nil
}

func (f *fakePriceRepo) FindLastBefore(_ context.Context, stockCode string, date time.Time) (*entity.PriceBar, error) {
	var best *entity.PriceBar
	for i := range f.bars {
		b := f.bars[i]
		if b.StockCode != stockCode || storedDay(b.TradeDate) >= boundDay(date) {
			continue
		}
		if best == nil || b.TradeDate.After(best.TradeDate) {
			best = &f.bars[i]
		}
	}
	return best, nil
}

func (f *fakePriceRepo) FindFirstOnOrAfter(_ context.Context, stockCode string, date time.Time) (*entity.PriceBar, error) {
	var best *entity.PriceBar
	for i := range f.bars {
		b := f.bars[i]
		if b.StockCode != stockCode || storedDay(b.TradeDate) < boundDay(date) {
			continue
		}
		if best == nil || b.TradeDate.Before(best.TradeDate) {
			best = &f.bars[i]
		}
	}
	return best, nil
}

// --- snapshots ---

type fakeSnapshotRepo struct {
	snapshots []entity.FeatureSnapshot
	nextID    uint
}

func snapshotKey(date time.Time, stockCode string) string {
	return date.Format("2006-01-02") + "|" + stockCode
}

func (f *fakeSnapshotRepo) FindExistingDates(_ context.Context, stockCode string, from, to time.Time) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, s := range f.snapshots {
		if s.StockCode != stockCode || storedDay(s.PredictionDate) < boundDay(from) || storedDay(s.PredictionDate) > boundDay(to) {
			continue
		}
		out[s.PredictionDate.Format("2006-01-02")] = struct{}{}
	}
	return out, nil
}

func (f *fakeSnapshotRepo) CreateBatchIgnoreConflict(_ context.Context, snapshots []*entity.FeatureSnapshot) (int64, error) {
	existing := make(map[string]struct{}, len(f.snapshots))
	for _, s := range f.snapshots {
		existing[snapshotKey(s.PredictionDate, s.StockCode)] = struct{}{}
	}
	var created int64
	for _, s := range snapshots {
		key := snapshotKey(s.PredictionDate, s.StockCode)
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}
		f.nextID++
		s.ID = f.nextID
		f.snapshots = append(f.snapshots, *s)
		created++
	}
	return created, nil
}

func (f *fakeSnapshotRepo) FindPredictedByDate(_ context.Context, date time.Time, market string) ([]entity.FeatureSnapshot, error) {
	var out []entity.FeatureSnapshot
	for _, s := range f.snapshots {
		if s.Market != market || !utils.SameDate(s.PredictionDate, date) || s.PredictedDirection == nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSnapshotRepo) FindByStockRange(_ context.Context, stockCode string, from, to time.Time) ([]entity.FeatureSnapshot, error) {
	var out []entity.FeatureSnapshot
	for _, s := range f.snapshots {
		if s.StockCode != stockCode || storedDay(s.PredictionDate) < boundDay(from) || storedDay(s.PredictionDate) > boundDay(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PredictionDate.Before(out[j].PredictionDate) })
	return out, nil
}

func (f *fakeSnapshotRepo) CountByMarket(_ context.Context, market string) (int64, error) {
	var n int64
	for _, s := range f.snapshots {
		if s.Market == market {
			n++
		}
	}
	return n, nil
}

func (f *fakeSnapshotRepo) UpdateOutcome(_ context.Context, id uint, actualClose, actualChangePct float64, actualDirection string, isCorrect bool, verifiedAt time.Time) error {
	for i := range f.snapshots {
		if f.snapshots[i].ID != id {
			continue
		}
		f.snapshots[i].ActualClose = &actualClose
		f.snapshots[i].ActualChangePct = &actualChangePct
		f.snapshots[i].ActualDirection = &actualDirection
		f.snapshots[i].IsCorrect = &isCorrect
		f.snapshots[i].VerifiedAt = &verifiedAt
		return nil
	}
	return nil
}

func (f *fakeSnapshotRepo) byStockDate(stockCode string, date time.Time) *entity.FeatureSnapshot {
	for i := range f.snapshots {
		if f.snapshots[i].StockCode == stockCode && utils.SameDate(f.snapshots[i].PredictionDate, date) {
			return &f.snapshots[i]
		}
	}
	return nil
}

// --- prediction results ---

type fakeResultRepo struct {
	results []entity.DailyPredictionResult
	nextID  uint
}

func (f *fakeResultRepo) CreateBatch(_ context.Context, results []*entity.DailyPredictionResult) error {
	for _, r := range results {
		f.nextID++
		r.ID = f.nextID
		f.results = append(f.results, *r)
	}
	return nil
}

func (f *fakeResultRepo) FindByRunID(_ context.Context, runID uint) ([]entity.DailyPredictionResult, error) {
	var out []entity.DailyPredictionResult
	for _, r := range f.results {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResultRepo) FindLatestGeneration(_ context.Context, date time.Time, market string) ([]entity.DailyPredictionResult, error) {
	var latest uint
	for _, r := range f.results {
		if r.Market == market && utils.SameDate(r.PredictionDate, date) && r.RunID > latest {
			latest = r.RunID
		}
	}
	var out []entity.DailyPredictionResult
	for _, r := range f.results {
		if r.Market == market && utils.SameDate(r.PredictionDate, date) && r.RunID == latest {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- run logs ---

type fakeRunLogRepo struct {
	logs   []entity.VerificationRunLog
	nextID uint
}

func (f *fakeRunLogRepo) Create(_ context.Context, log *entity.VerificationRunLog) error {
	f.nextID++
	log.ID = f.nextID
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeRunLogRepo) Update(_ context.Context, log *entity.VerificationRunLog) error {
	for i := range f.logs {
		if f.logs[i].ID == log.ID {
			f.logs[i] = *log
			return nil
		}
	}
	return nil
}

func (f *fakeRunLogRepo) FindByDate(_ context.Context, date time.Time, market string) ([]entity.VerificationRunLog, error) {
	var out []entity.VerificationRunLog
	for _, l := range f.logs {
		if l.Market == market && utils.SameDate(l.RunDate, date) {
			out = append(out, l)
		}
	}
	return out, nil
}

// --- theme accuracy ---

type fakeThemeRepo struct {
	records map[string]entity.ThemeAccuracyRecord
}

func themeKey(date time.Time, theme, market string) string {
	return date.Format("2006-01-02") + "|" + theme + "|" + market
}

func (f *fakeThemeRepo) Upsert(_ context.Context, records []*entity.ThemeAccuracyRecord) error {
	if f.records == nil {
		f.records = make(map[string]entity.ThemeAccuracyRecord)
	}
	for _, r := range records {
		f.records[themeKey(r.PredictionDate, r.Theme, r.Market)] = *r
	}
	return nil
}

func (f *fakeThemeRepo) FindByDate(_ context.Context, date time.Time, market string) ([]entity.ThemeAccuracyRecord, error) {
	var out []entity.ThemeAccuracyRecord
	for _, r := range f.records {
		if r.Market == market && utils.SameDate(r.PredictionDate, date) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Theme < out[j].Theme })
	return out, nil
}

// --- events ---

type fakeEventRepo struct {
	events   []entity.MarketEvent
	outcomes map[uint]entity.EventOutcome
}

func (f *fakeEventRepo) FindCandidates(_ context.Context, eventType, market string, sameMarketOnly bool, from, before time.Time, excludeID uint) ([]entity.MarketEvent, error) {
	var out []entity.MarketEvent
	for _, e := range f.events {
		if e.EventType != eventType || e.ID == excludeID {
			continue
		}
		if sameMarketOnly && e.Market != market {
			continue
		}
		if e.OccurredAt.Before(from) || !e.OccurredAt.Before(before) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (f *fakeEventRepo) FindOutcomes(_ context.Context, eventIDs []uint) (map[uint]entity.EventOutcome, error) {
	out := make(map[uint]entity.EventOutcome)
	for _, id := range eventIDs {
		if o, ok := f.outcomes[id]; ok {
			out[id] = o
		}
	}
	return out, nil
}

// --- models ---

type fakeModelRepo struct {
	records []entity.ModelRecord
	nextID  uint
}

func (f *fakeModelRepo) Create(_ context.Context, record *entity.ModelRecord) error {
	f.nextID++
	record.ID = f.nextID
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeModelRepo) FindByID(_ context.Context, id uint) (*entity.ModelRecord, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			record := f.records[i]
			return &record, nil
		}
	}
	return nil, repository.ErrModelNotFound
}

func (f *fakeModelRepo) FindActive(_ context.Context, market string) (*entity.ModelRecord, error) {
	for i := range f.records {
		if f.records[i].Market == market && f.records[i].Active {
			record := f.records[i]
			return &record, nil
		}
	}
	return nil, repository.ErrModelNotFound
}

func (f *fakeModelRepo) ActivateExclusive(_ context.Context, id uint) error {
	var target *entity.ModelRecord
	for i := range f.records {
		if f.records[i].ID == id {
			target = &f.records[i]
			break
		}
	}
	if target == nil {
		return repository.ErrModelNotFound
	}
	for i := range f.records {
		if f.records[i].Market == target.Market {
			f.records[i].Active = false
		}
	}
	target.Active = true
	return nil
}

// --- stocks ---

type fakeStocksRepo struct {
	stocks []entity.Stock
}

func (f *fakeStocksRepo) FindActiveByMarket(_ context.Context, market string) ([]entity.Stock, error) {
	var out []entity.Stock
	for _, s := range f.stocks {
		if s.Market == market && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

// --- notifier ---

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) SendMessage(text string) error {
	f.messages = append(f.messages, text)
	return nil
}
