package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/internal/pipeline/repository"
)

// Similarity component weights. Type match is constant within the candidate
// pool but carried for extensibility.
const (
	similarityTypeWeight        = 0.5
	similarityDirectionWeight   = 0.2
	similarityMagnitudeWeight   = 0.2
	similarityCredibilityWeight = 0.1
)

// SimilarityRetriever ranks historical events analogous to a reference
// event. It is read-only and must not feed the training pipeline: candidates
// intentionally carry realized outcomes, which is safe only because every
// candidate is strictly before the reference date.
type SimilarityRetriever interface {
	RetrieveSimilar(ctx context.Context, event *entity.MarketEvent, cfg dto.SimilarityConfig, referenceDate time.Time) ([]dto.SimilarEvent, error)
}

// NewSimilarityRetriever creates a new retriever.
func NewSimilarityRetriever(eventRepo repository.EventRepository) SimilarityRetriever {
	return &similarityRetriever{eventRepo: eventRepo}
}

type similarityRetriever struct {
	eventRepo repository.EventRepository
}

// RetrieveSimilar returns up to cfg.MaxResults past events of the same kind,
// sorted descending by similarity. Ties keep the candidates' original
// retrieval order. Config is validated before any query runs.
func (r *similarityRetriever) RetrieveSimilar(ctx context.Context, event *entity.MarketEvent, cfg dto.SimilarityConfig, referenceDate time.Time) ([]dto.SimilarEvent, error) {
	if err := validateSimilarityConfig(cfg); err != nil {
		return nil, err
	}

	from := referenceDate.AddDate(0, 0, -cfg.LookbackDays)
	candidates, err := r.eventRepo.FindCandidates(ctx, event.EventType, event.Market, cfg.SameMarketOnly, from, referenceDate, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load similarity candidates: %w", err)
	}

	ranked := make([]dto.SimilarEvent, 0, len(candidates))
	for _, c := range candidates {
		score := similarityScore(event, &c)
		if score < cfg.SimilarityThreshold {
			continue
		}
		ranked = append(ranked, dto.SimilarEvent{
			EventID:    c.ID,
			StockCode:  c.StockCode,
			Market:     c.Market,
			EventType:  c.EventType,
			Direction:  c.Direction,
			Magnitude:  c.Magnitude,
			Similarity: score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > cfg.MaxResults {
		ranked = ranked[:cfg.MaxResults]
	}

	if err := r.attachOutcomes(ctx, ranked); err != nil {
		return nil, err
	}
	return ranked, nil
}

func (r *similarityRetriever) attachOutcomes(ctx context.Context, ranked []dto.SimilarEvent) error {
	ids := make([]uint, len(ranked))
	for i, e := range ranked {
		ids[i] = e.EventID
	}
	outcomes, err := r.eventRepo.FindOutcomes(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load event outcomes: %w", err)
	}
	for i := range ranked {
		if o, ok := outcomes[ranked[i].EventID]; ok {
			ret := o.ActualReturn
			label := o.OutcomeLabel
			ranked[i].ActualReturn = &ret
			ranked[i].OutcomeLabel = &label
		}
	}
	return nil
}

// similarityScore is the weighted sum of four components. The closeness
// terms floor at 0 so a far-off candidate never contributes negatively.
func similarityScore(ref, candidate *entity.MarketEvent) float64 {
	score := similarityTypeWeight

	if ref.Direction == candidate.Direction {
		score += similarityDirectionWeight
	}

	magCloseness := 1 - math.Abs(ref.Magnitude-candidate.Magnitude)
	if magCloseness > 0 {
		score += similarityMagnitudeWeight * magCloseness
	}

	credCloseness := 1 - math.Abs(ref.Credibility-candidate.Credibility)
	if credCloseness > 0 {
		score += similarityCredibilityWeight * credCloseness
	}

	return score
}

func validateSimilarityConfig(cfg dto.SimilarityConfig) error {
	if cfg.LookbackDays <= 0 {
		return fmt.Errorf("%w: lookback_days must be positive", ErrInvalidConfig)
	}
	if cfg.MaxResults <= 0 {
		return fmt.Errorf("%w: max_results must be positive", ErrInvalidConfig)
	}
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}
