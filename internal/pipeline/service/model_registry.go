package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/pkg/logger"

	"gorm.io/datatypes"
)

// ModelMetadata describes a trained model being registered.
type ModelMetadata struct {
	Name         string
	Version      string
	Market       string
	FeatureTier  int
	Metrics      map[string]float64
	ArtifactPath string
}

// ModelRegistry stores trained-model metadata and enforces the "at most one
// active model per market" invariant.
type ModelRegistry interface {
	Save(ctx context.Context, artifact []byte, meta ModelMetadata) (*entity.ModelRecord, error)
	Activate(ctx context.Context, id uint) error
	GetActive(ctx context.Context, market string) (*entity.ModelRecord, error)
	Load(ctx context.Context, id uint) (*entity.ModelRecord, error)
}

// NewModelRegistry creates a model registry.
func NewModelRegistry(modelRepo repository.ModelRepository, log *logger.Logger) ModelRegistry {
	return &modelRegistry{modelRepo: modelRepo, logger: log}
}

type modelRegistry struct {
	modelRepo repository.ModelRepository
	logger    *logger.Logger
}

// Save computes the artifact checksum and inserts an inactive record.
func (m *modelRegistry) Save(ctx context.Context, artifact []byte, meta ModelMetadata) (*entity.ModelRecord, error) {
	if !entity.IsValidMarket(meta.Market) {
		return nil, ErrUnknownMarket
	}
	if _, err := TierFeatures(meta.FeatureTier); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(artifact)

	metrics, err := json.Marshal(meta.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}

	record := &entity.ModelRecord{
		Name:         meta.Name,
		Version:      meta.Version,
		Market:       meta.Market,
		FeatureTier:  meta.FeatureTier,
		Metrics:      datatypes.JSON(metrics),
		ArtifactPath: meta.ArtifactPath,
		Checksum:     hex.EncodeToString(sum[:]),
		Active:       false,
	}
	if err := m.modelRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save model record: %w", err)
	}

	m.logger.Info("Model registered",
		logger.StringField("name", record.Name),
		logger.StringField("version", record.Version),
		logger.StringField("market", record.Market))
	return record, nil
}

// Activate flips the target record to active and every other record of its
// market to inactive in one unit of work.
func (m *modelRegistry) Activate(ctx context.Context, id uint) error {
	return m.modelRepo.ActivateExclusive(ctx, id)
}

// GetActive returns the active model of a market.
func (m *modelRegistry) GetActive(ctx context.Context, market string) (*entity.ModelRecord, error) {
	if !entity.IsValidMarket(market) {
		return nil, ErrUnknownMarket
	}
	return m.modelRepo.FindActive(ctx, market)
}

// Load returns a model record by id, failing with a not-found error when the
// id is unknown.
func (m *modelRegistry) Load(ctx context.Context, id uint) (*entity.ModelRecord, error) {
	return m.modelRepo.FindByID(ctx, id)
}
