package service

import (
	"context"
	"fmt"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/classifier"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/utils"
)

// NewsIngestService is the boundary where external fetchers hand normalized
// news in: it scores each record via the classifier and the composite
// scorer, then persists it. Records are immutable once scored.
type NewsIngestService interface {
	Ingest(ctx context.Context, raw dto.RawNews) (*entity.NewsRecord, error)
}

// NewNewsIngestService creates a news ingest service.
func NewNewsIngestService(
	newsRepo repository.NewsRepository,
	oracle classifier.Classifier,
	scorer *Scorer,
	log *logger.Logger,
) NewsIngestService {
	return &newsIngestService{
		newsRepo: newsRepo,
		oracle:   oracle,
		scorer:   scorer,
		logger:   log,
	}
}

type newsIngestService struct {
	newsRepo repository.NewsRepository
	oracle   classifier.Classifier
	scorer   *Scorer
	logger   *logger.Logger
}

// Ingest classifies, scores, and stores one normalized news record.
// Validation failures reject the record before any write occurs.
func (s *newsIngestService) Ingest(ctx context.Context, raw dto.RawNews) (*entity.NewsRecord, error) {
	if !entity.IsValidMarket(raw.Market) {
		return nil, ErrUnknownMarket
	}
	if raw.StockCode == "" {
		return nil, fmt.Errorf("stock code is required")
	}

	verdict, err := s.oracle.Classify(ctx, raw.Title, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	sameDay, err := s.newsRepo.CountByStockOnDate(ctx, raw.StockCode, raw.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to count same-day news: %w", err)
	}

	score := s.scorer.Score(raw.PublishedAt, utils.TimeNowKST(), int(sameDay)+1, verdict.SentimentMagnitude, raw.IsDisclosure)

	record := &entity.NewsRecord{
		StockCode:          raw.StockCode,
		Market:             raw.Market,
		Title:              raw.Title,
		Source:             raw.Source,
		PublishedAt:        raw.PublishedAt,
		SentimentLabel:     verdict.SentimentLabel,
		SentimentMagnitude: verdict.SentimentMagnitude,
		Themes:             verdict.Themes,
		IsDisclosure:       raw.IsDisclosure,
		CompositeScore:     score,
	}
	if err := s.newsRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store news record: %w", err)
	}

	s.logger.Debug("News record ingested",
		logger.StringField("stock_code", record.StockCode),
		logger.Float64Field("composite_score", record.CompositeScore))
	return record, nil
}
