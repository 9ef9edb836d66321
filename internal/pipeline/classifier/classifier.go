package classifier

import (
	"context"

	"stock-feature-pipeline/internal/pipeline/dto"
)

// Classifier is the external scoring oracle: given news text it returns a
// sentiment label, a magnitude in [-1,1], up to two theme tags, and a
// confidence. The pipeline depends only on this contract, never on a
// specific backend.
type Classifier interface {
	Classify(ctx context.Context, title, content string) (*dto.NewsClassification, error)
}
