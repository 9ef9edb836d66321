package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/telegram"
	"stock-feature-pipeline/pkg/utils"
)

// VerificationEngine matches each prediction made on a day to the realized
// next-session price move and persists one judgment per stock plus a
// run-level audit log. Results are append-only: a rerun writes a new
// generation under a new run log.
type VerificationEngine interface {
	VerifyDay(ctx context.Context, runDate time.Time, market string) (*entity.VerificationRunLog, error)
}

// NewVerificationEngine creates a verification engine. The notifier may be
// nil; run failures are then only logged.
func NewVerificationEngine(
	snapshotRepo repository.SnapshotRepository,
	priceRepo repository.PriceRepository,
	resultRepo repository.PredictionResultRepository,
	runLogRepo repository.RunLogRepository,
	notifier telegram.Notifier,
	log *logger.Logger,
	directionThresholdPct float64,
) VerificationEngine {
	if directionThresholdPct <= 0 {
		directionThresholdPct = 1.0
	}
	return &verificationEngine{
		snapshotRepo: snapshotRepo,
		priceRepo:    priceRepo,
		resultRepo:   resultRepo,
		runLogRepo:   runLogRepo,
		notifier:     notifier,
		logger:       log,
		thresholdPct: directionThresholdPct,
	}
}

type verificationEngine struct {
	snapshotRepo repository.SnapshotRepository
	priceRepo    repository.PriceRepository
	resultRepo   repository.PredictionResultRepository
	runLogRepo   repository.RunLogRepository
	notifier     telegram.Notifier
	logger       *logger.Logger
	thresholdPct float64
}

// VerifyDay runs the verification state machine for (runDate, market):
// pending -> running -> completed|failed. Missing price data fails the
// individual stock, never the run.
func (e *verificationEngine) VerifyDay(ctx context.Context, runDate time.Time, market string) (*entity.VerificationRunLog, error) {
	if !entity.IsValidMarket(market) {
		return nil, ErrUnknownMarket
	}
	runDate = utils.DateOnly(runDate)

	runLog := &entity.VerificationRunLog{
		RunDate:   runDate,
		Market:    market,
		Status:    entity.RunStatusPending,
		StartedAt: utils.TimeNowKST(),
	}
	if err := e.runLogRepo.Create(ctx, runLog); err != nil {
		return nil, fmt.Errorf("failed to create run log: %w", err)
	}

	runLog.Status = entity.RunStatusRunning
	if err := e.runLogRepo.Update(ctx, runLog); err != nil {
		return nil, fmt.Errorf("failed to mark run as running: %w", err)
	}

	verified, failed, err := e.runVerification(ctx, runDate, market, runLog.ID)
	runLog.StocksVerified = verified
	runLog.StocksFailed = failed
	runLog.DurationSecs = utils.TimeNowKST().Sub(runLog.StartedAt).Seconds()
	runLog.CompletedAt = sql.NullTime{Time: utils.TimeNowKST(), Valid: true}

	if err != nil {
		runLog.Status = entity.RunStatusFailed
		runLog.ErrorDetails = sql.NullString{String: err.Error(), Valid: true}
		if updateErr := e.runLogRepo.Update(ctx, runLog); updateErr != nil {
			e.logger.Error("Failed to persist failed run log", logger.ErrorField(updateErr))
		}
		e.alertFailure(runDate, market, err)
		return runLog, err
	}

	runLog.Status = entity.RunStatusCompleted
	if err := e.runLogRepo.Update(ctx, runLog); err != nil {
		return runLog, fmt.Errorf("failed to persist run log: %w", err)
	}

	e.logger.Info("Verification run completed",
		logger.StringField("market", market),
		logger.StringField("run_date", runDate.Format("2006-01-02")),
		logger.IntField("verified", verified),
		logger.IntField("failed", failed))
	e.notifySummary(runDate, market, runLog)
	return runLog, nil
}

func (e *verificationEngine) runVerification(ctx context.Context, runDate time.Time, market string, runID uint) (int, int, error) {
	snapshots, err := e.snapshotRepo.FindPredictedByDate(ctx, runDate, market)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load predictions: %w", err)
	}

	var verified, failed int
	results := make([]*entity.DailyPredictionResult, 0, len(snapshots))

	for _, snapshot := range snapshots {
		result := &entity.DailyPredictionResult{
			RunID:              runID,
			PredictionDate:     runDate,
			StockCode:          snapshot.StockCode,
			Market:             market,
			PredictedDirection: derefString(snapshot.PredictedDirection),
			PredictedScore:     derefFloat(snapshot.PredictedScore),
			Confidence:         derefFloat(snapshot.Confidence),
		}

		if err := e.resolveOutcome(ctx, &snapshot, result); err != nil {
			result.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			failed++
			e.logger.Warn("Could not resolve realized move",
				logger.ErrorField(err), logger.StringField("stock_code", snapshot.StockCode))
		} else {
			verified++
		}
		results = append(results, result)
	}

	if err := e.resultRepo.CreateBatch(ctx, results); err != nil {
		return verified, failed, fmt.Errorf("failed to persist results: %w", err)
	}
	return verified, failed, nil
}

// resolveOutcome fetches the realized next-session move and fills in the
// result and the snapshot's outcome fields. A missing bar is a per-stock
// data-unavailable error.
func (e *verificationEngine) resolveOutcome(ctx context.Context, snapshot *entity.FeatureSnapshot, result *entity.DailyPredictionResult) error {
	session, err := e.priceRepo.FindFirstOnOrAfter(ctx, snapshot.StockCode, result.PredictionDate)
	if err != nil {
		return fmt.Errorf("price lookup failed: %w", err)
	}
	if session == nil {
		return fmt.Errorf("no trading session on or after %s", result.PredictionDate.Format("2006-01-02"))
	}
	// The scanned trade date is a UTC midnight off a DATE column; pin it to
	// KST so the previous-close lookup bound matches the caller's calendar.
	sessionDate := utils.DateOnlyKST(session.TradeDate)
	prev, err := e.priceRepo.FindLastBefore(ctx, snapshot.StockCode, sessionDate)
	if err != nil {
		return fmt.Errorf("price lookup failed: %w", err)
	}
	if prev == nil || prev.Close == 0 {
		return fmt.Errorf("no previous close before %s", sessionDate.Format("2006-01-02"))
	}

	changePct := round2((session.Close - prev.Close) / prev.Close * 100)
	actualDirection := classifyDirection(changePct, e.thresholdPct)
	isCorrect := result.PredictedDirection == actualDirection

	result.ActualClose = &session.Close
	result.ActualChangePct = &changePct
	result.ActualDirection = &actualDirection
	result.IsCorrect = &isCorrect

	if err := e.snapshotRepo.UpdateOutcome(ctx, snapshot.ID, session.Close, changePct, actualDirection, isCorrect, utils.TimeNowKST()); err != nil {
		return fmt.Errorf("failed to write snapshot outcome: %w", err)
	}
	return nil
}

func (e *verificationEngine) notifySummary(runDate time.Time, market string, runLog *entity.VerificationRunLog) {
	if e.notifier == nil {
		return
	}
	msg := telegram.FormatRunSummaryMessage(runDate, market,
		runLog.StocksVerified, runLog.StocksFailed, time.Duration(runLog.DurationSecs*float64(time.Second)))
	if sendErr := e.notifier.SendMessage(msg); sendErr != nil {
		e.logger.Error("Failed to send run summary", logger.ErrorField(sendErr))
	}
}

func (e *verificationEngine) alertFailure(runDate time.Time, market string, err error) {
	if e.notifier == nil {
		return
	}
	msg := telegram.FormatRunFailureMessage(runDate, market, err.Error())
	if sendErr := e.notifier.SendMessage(msg); sendErr != nil {
		e.logger.Error("Failed to send run failure alert", logger.ErrorField(sendErr))
	}
}

// classifyDirection applies the symmetric threshold: above +tau is up, below
// -tau is down, anything between is neutral.
func classifyDirection(changePct, thresholdPct float64) string {
	switch {
	case changePct > thresholdPct:
		return entity.DirectionUp
	case changePct < -thresholdPct:
		return entity.DirectionDown
	default:
		return entity.DirectionNeutral
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
