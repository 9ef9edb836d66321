package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/internal/pipeline/service"
	"stock-feature-pipeline/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ModelHandler exposes the model registry endpoints.
type ModelHandler struct {
	registry service.ModelRegistry
	logger   *logger.Logger
}

// NewModelHandler creates a new ModelHandler.
func NewModelHandler(registry service.ModelRegistry, log *logger.Logger) *ModelHandler {
	return &ModelHandler{registry: registry, logger: log}
}

// RegisterRoutes registers the model routes to the Echo group.
func (h *ModelHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.SaveModel)
	g.GET("/active", h.GetActiveModel)
	g.GET("/:id", h.GetModel)
	g.POST("/:id/activate", h.ActivateModel)
	g.GET("/tiers/:tier", h.GetFeatureTier)
}

// SaveModel registers a trained model artifact. The model starts inactive.
func (h *ModelHandler) SaveModel(c echo.Context) error {
	var req dto.SaveModelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	artifact, err := base64.StdEncoding.DecodeString(req.ArtifactBase64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid artifact_base64"})
	}

	record, err := h.registry.Save(c.Request().Context(), artifact, service.ModelMetadata{
		Name:         req.Name,
		Version:      req.Version,
		Market:       req.Market,
		FeatureTier:  req.FeatureTier,
		Metrics:      req.Metrics,
		ArtifactPath: req.ArtifactPath,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownMarket) || errors.Is(err, service.ErrInvalidTier) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to save model", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to save model"})
	}
	return c.JSON(http.StatusCreated, record)
}

// GetActiveModel returns the single active model of a market, if any.
func (h *ModelHandler) GetActiveModel(c echo.Context) error {
	market := c.QueryParam("market")
	if !entity.IsValidMarket(market) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown market"})
	}

	record, err := h.registry.GetActive(c.Request().Context(), market)
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "No active model for market"})
		}
		h.logger.Error("Failed to get active model", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get active model"})
	}
	return c.JSON(http.StatusOK, record)
}

// GetModel returns one model record by ID.
func (h *ModelHandler) GetModel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid model ID"})
	}

	record, err := h.registry.Load(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Model not found"})
		}
		h.logger.Error("Failed to load model", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load model"})
	}
	return c.JSON(http.StatusOK, record)
}

// ActivateModel switches the active model of its market to the given ID.
func (h *ModelHandler) ActivateModel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid model ID"})
	}

	if err := h.registry.Activate(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrModelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Model not found"})
		}
		h.logger.Error("Failed to activate model", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to activate model"})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetFeatureTier returns the ordered feature list and sample floor of a tier.
func (h *ModelHandler) GetFeatureTier(c echo.Context) error {
	tier, err := strconv.Atoi(c.Param("tier"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid tier"})
	}

	features, err := service.TierFeatures(tier)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	minSamples, err := service.TierMinSamples(tier)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, dto.FeatureTierResponse{
		Tier:       tier,
		Features:   features,
		MinSamples: int(minSamples),
	})
}
