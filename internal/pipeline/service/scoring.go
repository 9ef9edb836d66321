package service

import (
	"math"
	"time"
)

// ScoreWeights are the component weights of the composite news score. They
// are expected to sum to 1.0; that is the caller's responsibility and is not
// enforced at runtime.
type ScoreWeights struct {
	Recency    float64
	Frequency  float64
	Sentiment  float64
	Disclosure float64
}

// DefaultScoreWeights returns the standard 0.4/0.3/0.2/0.1 weighting.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Recency: 0.4, Frequency: 0.3, Sentiment: 0.2, Disclosure: 0.1}
}

// Scorer computes the 0-100 composite importance score of a news item. It is
// pure: all inputs are passed in, including the clock.
type Scorer struct {
	weights      ScoreWeights
	halfLife     time.Duration
	frequencyMax int
}

// NewScorer creates a scorer. Zero-valued parameters fall back to defaults
// (24h half-life, frequency ceiling of 50).
func NewScorer(weights ScoreWeights, halfLife time.Duration, frequencyMax int) *Scorer {
	if halfLife <= 0 {
		halfLife = 24 * time.Hour
	}
	if frequencyMax <= 0 {
		frequencyMax = 50
	}
	return &Scorer{weights: weights, halfLife: halfLife, frequencyMax: frequencyMax}
}

// Recency maps a publish timestamp to [0,100] with exponential decay of the
// configured half-life. Future timestamps clamp to 100 rather than erroring.
func (s *Scorer) Recency(publishedAt, now time.Time) float64 {
	delta := now.Sub(publishedAt)
	if delta < 0 {
		return 100
	}
	hours := delta.Hours()
	halfLives := hours / s.halfLife.Hours()
	return clampScore(round2(100 * math.Pow(2, -halfLives)))
}

// Frequency maps a same-day news count to [0,100] linearly against the
// configured ceiling.
func (s *Scorer) Frequency(count int) float64 {
	if count <= 0 {
		return 0
	}
	score := float64(count) / float64(s.frequencyMax) * 100
	return clampScore(round2(score))
}

// Sentiment maps a sentiment magnitude in [-1,1] to [0,100].
func (s *Scorer) Sentiment(magnitude float64) float64 {
	return clampScore(round2((magnitude + 1) * 50))
}

// Disclosure maps the disclosure flag to 100 or 0.
func (s *Scorer) Disclosure(isDisclosure bool) float64 {
	if isDisclosure {
		return 100
	}
	return 0
}

// Composite combines the four components into the weighted 0-100 score.
func (s *Scorer) Composite(recency, frequency, sentiment, disclosure float64) float64 {
	score := recency*s.weights.Recency +
		frequency*s.weights.Frequency +
		sentiment*s.weights.Sentiment +
		disclosure*s.weights.Disclosure
	return clampScore(round2(score))
}

// Score is the convenience path from raw inputs to the composite score.
func (s *Scorer) Score(publishedAt, now time.Time, sameDayCount int, magnitude float64, isDisclosure bool) float64 {
	return s.Composite(
		s.Recency(publishedAt, now),
		s.Frequency(sameDayCount),
		s.Sentiment(magnitude),
		s.Disclosure(isDisclosure),
	)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
