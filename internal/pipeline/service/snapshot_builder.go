package service

import (
	"context"
	"fmt"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/utils"
)

// SnapshotBuilder builds immutable point-in-time feature snapshots, one per
// (prediction_date, stock_code). Re-running over an already snapshotted
// range creates zero new rows.
type SnapshotBuilder interface {
	BuildSnapshots(ctx context.Context, stockCode, market string, from, to time.Time) (int, error)
	BuildMarket(ctx context.Context, market string, from, to time.Time) (int, error)
}

// SnapshotBuilderOptions are the builder's tuning knobs.
type SnapshotBuilderOptions struct {
	BatchSize          int
	PriceWarmupDays    int
	CrossThemeLookback int
}

// NewSnapshotBuilder creates a snapshot builder.
func NewSnapshotBuilder(
	priceRepo repository.PriceRepository,
	newsRepo repository.NewsRepository,
	snapshotRepo repository.SnapshotRepository,
	stocksRepo repository.StocksRepository,
	crossTheme CrossThemeService,
	indicatorCache *MarketIndicatorCache,
	log *logger.Logger,
	opts SnapshotBuilderOptions,
) SnapshotBuilder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.PriceWarmupDays <= 0 {
		opts.PriceWarmupDays = 60
	}
	if opts.CrossThemeLookback <= 0 {
		opts.CrossThemeLookback = 7
	}
	return &snapshotBuilder{
		priceRepo:      priceRepo,
		newsRepo:       newsRepo,
		snapshotRepo:   snapshotRepo,
		stocksRepo:     stocksRepo,
		crossTheme:     crossTheme,
		indicatorCache: indicatorCache,
		logger:         log,
		opts:           opts,
	}
}

type snapshotBuilder struct {
	priceRepo      repository.PriceRepository
	newsRepo       repository.NewsRepository
	snapshotRepo   repository.SnapshotRepository
	stocksRepo     repository.StocksRepository
	crossTheme     CrossThemeService
	indicatorCache *MarketIndicatorCache
	logger         *logger.Logger
	opts           SnapshotBuilderOptions
}

// crossThemeMemo caches one ScoreBatch result per date so a market-wide
// backfill issues a single cross-theme query per day instead of one per
// (stock, day).
type crossThemeMemo map[string]map[string]map[string]float64

// BuildSnapshots builds snapshots for one stock across [from, to]. Days
// without a price bar and days already snapshotted are skipped, not errors.
// Returns the number of newly created rows.
func (b *snapshotBuilder) BuildSnapshots(ctx context.Context, stockCode, market string, from, to time.Time) (int, error) {
	return b.buildForStock(ctx, stockCode, market, from, to, crossThemeMemo{})
}

// BuildMarket builds snapshots for every active stock of a market. Per-stock
// failures are logged and skipped; the backfill keeps going.
func (b *snapshotBuilder) BuildMarket(ctx context.Context, market string, from, to time.Time) (int, error) {
	if !entity.IsValidMarket(market) {
		return 0, ErrUnknownMarket
	}
	stocks, err := b.stocksRepo.FindActiveByMarket(ctx, market)
	if err != nil {
		return 0, fmt.Errorf("failed to load stock universe: %w", err)
	}

	memo := crossThemeMemo{}
	total := 0
	for _, stock := range stocks {
		created, err := b.buildForStock(ctx, stock.Code, market, from, to, memo)
		// A mid-stock failure may have committed earlier batches; count them.
		total += created
		if err != nil {
			b.logger.Error("Failed to build snapshots for stock",
				logger.ErrorField(err), logger.StringField("stock_code", stock.Code))
		}
	}
	return total, nil
}

func (b *snapshotBuilder) buildForStock(ctx context.Context, stockCode, market string, from, to time.Time, memo crossThemeMemo) (int, error) {
	if !entity.IsValidMarket(market) {
		return 0, ErrUnknownMarket
	}
	from = utils.DateOnlyKST(from)
	to = utils.DateOnlyKST(to)

	// 60 days of warmup history so the 20-day volatility window is full on
	// the first snapshot day.
	bars, err := b.priceRepo.FindRange(ctx, stockCode, from.AddDate(0, 0, -b.opts.PriceWarmupDays), to)
	if err != nil {
		return 0, fmt.Errorf("failed to load price history: %w", err)
	}
	if len(bars) == 0 {
		return 0, nil
	}

	existing, err := b.snapshotRepo.FindExistingDates(ctx, stockCode, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to look up existing snapshots: %w", err)
	}

	// News from three days before the range start covers every 3-day rolling
	// window inside it.
	newsFrom := from.AddDate(0, 0, -3)
	newsTo := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	news, err := b.newsRepo.FindByStockInWindow(ctx, stockCode, newsFrom, newsTo)
	if err != nil {
		return 0, fmt.Errorf("failed to load news window: %w", err)
	}

	created := 0
	batch := make([]*entity.FeatureSnapshot, 0, b.opts.BatchSize)

	for i, bar := range bars {
		// Scanned trade dates carry their own location (UTC midnights off a
		// DATE column); pin them to KST before comparing against the bounds.
		day := utils.DateOnlyKST(bar.TradeDate)
		if day.Before(from) || day.After(to) {
			continue
		}
		if _, ok := existing[day.Format("2006-01-02")]; ok {
			continue
		}

		// Only bars dated on or before the snapshot day feed its features.
		closes := make([]float64, 0, i+1)
		for _, prior := range bars[:i+1] {
			closes = append(closes, prior.Close)
		}

		snapshot := b.newSnapshot(stockCode, market, day, bar, closes, news)

		crossScore, err := b.crossScoreFor(ctx, memo, stockCode, market, day)
		if err != nil {
			return created, err
		}
		snapshot.CrossThemeScore = crossScore

		batch = append(batch, snapshot)
		if len(batch) >= b.opts.BatchSize {
			n, err := b.snapshotRepo.CreateBatchIgnoreConflict(ctx, batch)
			if err != nil {
				return created, fmt.Errorf("failed to commit snapshot batch: %w", err)
			}
			created += int(n)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		n, err := b.snapshotRepo.CreateBatchIgnoreConflict(ctx, batch)
		if err != nil {
			return created, fmt.Errorf("failed to commit snapshot batch: %w", err)
		}
		created += int(n)
	}

	b.logger.Debug("Snapshot build finished",
		logger.StringField("stock_code", stockCode),
		logger.IntField("created", created))
	return created, nil
}

func (b *snapshotBuilder) newSnapshot(stockCode, market string, day time.Time, bar entity.PriceBar, closes []float64, news []entity.NewsRecord) *entity.FeatureSnapshot {
	snapshot := &entity.FeatureSnapshot{
		PredictionDate: day,
		StockCode:      stockCode,
		Market:         market,

		PrevClose:     bar.Close,
		PrevChangePct: round2(nDayReturn(closes, 1)),
		PriceChange1D: round2(nDayReturn(closes, 1)),
		PriceChange3D: round2(nDayReturn(closes, 3)),
		PriceChange5D: round2(nDayReturn(closes, 5)),
		MA5Ratio:      round4(maRatio(closes, 5)),
		MA20Ratio:     round4(maRatio(closes, 20)),
		Volatility5D:  round4(returnVolatility(closes, 5)),
		Volatility20D: round4(returnVolatility(closes, 20)),
		RSI14:         round2(rsi(closes, 14)),
		BBPosition:    round4(bollingerPosition(closes, 20)),
		DollarVolume:  bar.Close * float64(bar.Volume),
	}

	b.applyNewsFeatures(snapshot, day, news)

	if b.indicatorCache != nil {
		if ind, ok := b.indicatorCache.Get(market, day); ok {
			snapshot.MarketReturn = &ind.MarketReturn
			snapshot.VixChange = &ind.VixChange
			snapshot.FxChange = &ind.FxChange
			snapshot.PeerDisclosure = &ind.PeerDisclosure
		}
	}

	return snapshot
}

func (b *snapshotBuilder) applyNewsFeatures(snapshot *entity.FeatureSnapshot, day time.Time, news []entity.NewsRecord) {
	dayEnd := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	window3Start := day.AddDate(0, 0, -2)

	var (
		dayScoreSum, daySentSum, dayMagSum  float64
		dayCount                            int
		win3ScoreSum, priorMagSum           float64
		win3Count, win3Disclosures, priorCt int
	)

	for _, item := range news {
		published := item.PublishedAt.In(utils.LocationKST())
		if published.After(dayEnd) {
			continue
		}
		if utils.SameDate(published, day) {
			dayScoreSum += item.CompositeScore
			daySentSum += (item.SentimentMagnitude + 1) * 50
			dayMagSum += item.SentimentMagnitude
			dayCount++
		}
		if !published.Before(window3Start) {
			win3ScoreSum += item.CompositeScore
			win3Count++
			if item.IsDisclosure {
				win3Disclosures++
			}
			if !utils.SameDate(published, day) {
				priorMagSum += item.SentimentMagnitude
				priorCt++
			}
		}
	}

	snapshot.NewsCount = dayCount
	snapshot.NewsCount3D = win3Count
	if dayCount > 0 {
		snapshot.NewsScore = round2(dayScoreSum / float64(dayCount))
		snapshot.SentimentScore = round2(daySentSum / float64(dayCount))
	}
	if win3Count > 0 {
		snapshot.AvgScore3D = round2(win3ScoreSum / float64(win3Count))
		snapshot.DisclosureRatio = round4(float64(win3Disclosures) / float64(win3Count))
	}
	// Trend is today's mean sentiment magnitude against the prior two days'.
	if dayCount > 0 && priorCt > 0 {
		snapshot.SentimentTrend = round4(dayMagSum/float64(dayCount) - priorMagSum/float64(priorCt))
	}
}

func (b *snapshotBuilder) crossScoreFor(ctx context.Context, memo crossThemeMemo, stockCode, market string, day time.Time) (float64, error) {
	key := day.Format("2006-01-02")
	batch, ok := memo[key]
	if !ok {
		var err error
		batch, err = b.crossTheme.ScoreBatch(ctx, market, day, b.opts.CrossThemeLookback)
		if err != nil {
			return 0, fmt.Errorf("failed to compute cross-theme scores: %w", err)
		}
		memo[key] = batch
	}

	themes, ok := batch[stockCode]
	if !ok || len(themes) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range themes {
		sum += v
	}
	return round2(sum / float64(len(themes))), nil
}
