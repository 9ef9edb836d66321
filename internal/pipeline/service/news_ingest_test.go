package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	verdict *dto.NewsClassification
	err     error
	calls   int
}

func (f *fakeClassifier) Classify(_ context.Context, _, _ string) (*dto.NewsClassification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func TestIngestScoresAndStores(t *testing.T) {
	newsRepo := &fakeNewsRepo{}
	oracle := &fakeClassifier{verdict: &dto.NewsClassification{
		SentimentLabel:     "positive",
		SentimentMagnitude: 0.8,
		Themes:             []string{"semiconductor", "export"},
		Confidence:         0.9,
	}}
	svc := NewNewsIngestService(newsRepo, oracle, NewScorer(DefaultScoreWeights(), 0, 0), newTestLogger(t))

	record, err := svc.Ingest(context.Background(), dto.RawNews{
		StockCode:    "005930",
		Market:       entity.MarketKOSPI,
		Title:        "Samsung posts record chip earnings",
		Content:      "Quarterly operating profit beat consensus.",
		Source:       "yonhap",
		PublishedAt:  utils.TimeNowKST().Add(-2 * time.Hour),
		IsDisclosure: true,
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, "positive", record.SentimentLabel)
	assert.Equal(t, 0.8, record.SentimentMagnitude)
	assert.Equal(t, []string{"semiconductor", "export"}, []string(record.Themes))
	assert.Equal(t, "yonhap", record.Source)
	assert.Greater(t, record.CompositeScore, 0.0)
	assert.LessOrEqual(t, record.CompositeScore, 100.0)
	assert.Len(t, newsRepo.records, 1)
}

func TestIngestFrequencyCountsExistingSameDayNews(t *testing.T) {
	today := utils.DateOnly(utils.TimeNowKST())
	newsRepo := &fakeNewsRepo{records: []entity.NewsRecord{
		{StockCode: "005930", Market: entity.MarketKOSPI, PublishedAt: today.Add(9 * time.Hour)},
		{StockCode: "005930", Market: entity.MarketKOSPI, PublishedAt: today.Add(10 * time.Hour)},
	}}
	oracle := &fakeClassifier{verdict: &dto.NewsClassification{SentimentMagnitude: 0}}
	scorer := NewScorer(DefaultScoreWeights(), 0, 0)
	svc := NewNewsIngestService(newsRepo, oracle, scorer, newTestLogger(t))

	record, err := svc.Ingest(context.Background(), dto.RawNews{
		StockCode:   "005930",
		Market:      entity.MarketKOSPI,
		Title:       "t",
		PublishedAt: today.Add(11 * time.Hour),
	})
	require.NoError(t, err)

	// The new item is the third of its day.
	want := scorer.Score(record.PublishedAt, utils.TimeNowKST(), 3, 0, false)
	assert.InDelta(t, want, record.CompositeScore, 0.5)
}

func TestIngestRejectsInvalidInput(t *testing.T) {
	oracle := &fakeClassifier{verdict: &dto.NewsClassification{}}
	svc := NewNewsIngestService(&fakeNewsRepo{}, oracle, NewScorer(DefaultScoreWeights(), 0, 0), newTestLogger(t))

	_, err := svc.Ingest(context.Background(), dto.RawNews{
		StockCode: "005930", Market: "NYSE", Title: "t", PublishedAt: utils.TimeNowKST(),
	})
	assert.ErrorIs(t, err, ErrUnknownMarket)

	_, err = svc.Ingest(context.Background(), dto.RawNews{
		Market: entity.MarketKOSPI, Title: "t", PublishedAt: utils.TimeNowKST(),
	})
	assert.Error(t, err)
	assert.Equal(t, 0, oracle.calls, "validation happens before classification")
}

func TestIngestClassifierFailureWritesNothing(t *testing.T) {
	newsRepo := &fakeNewsRepo{}
	oracle := &fakeClassifier{err: errors.New("quota exceeded")}
	svc := NewNewsIngestService(newsRepo, oracle, NewScorer(DefaultScoreWeights(), 0, 0), newTestLogger(t))

	_, err := svc.Ingest(context.Background(), dto.RawNews{
		StockCode: "005930", Market: entity.MarketKOSPI, Title: "t", PublishedAt: utils.TimeNowKST(),
	})
	require.Error(t, err)
	assert.Empty(t, newsRepo.records)
}
