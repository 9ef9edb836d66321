package http

import (
	"errors"
	"net/http"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/internal/pipeline/repository"
	"stock-feature-pipeline/internal/pipeline/service"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/utils"

	"github.com/labstack/echo/v4"
)

// PipelineHandler exposes the pipeline's read and trigger endpoints.
type PipelineHandler struct {
	scheduler          service.SchedulerService
	similarity         service.SimilarityRetriever
	similarityDefaults dto.SimilarityConfig
	ingest             service.NewsIngestService
	indicatorCache     *service.MarketIndicatorCache
	snapshotRepo       repository.SnapshotRepository
	themeRepo          repository.ThemeAccuracyRepository
	runLogRepo         repository.RunLogRepository
	logger             *logger.Logger
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(
	scheduler service.SchedulerService,
	similarity service.SimilarityRetriever,
	similarityDefaults dto.SimilarityConfig,
	ingest service.NewsIngestService,
	indicatorCache *service.MarketIndicatorCache,
	snapshotRepo repository.SnapshotRepository,
	themeRepo repository.ThemeAccuracyRepository,
	runLogRepo repository.RunLogRepository,
	log *logger.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		scheduler:          scheduler,
		similarity:         similarity,
		similarityDefaults: similarityDefaults,
		ingest:             ingest,
		indicatorCache:     indicatorCache,
		snapshotRepo:       snapshotRepo,
		themeRepo:          themeRepo,
		runLogRepo:         runLogRepo,
		logger:             log,
	}
}

// RegisterRoutes registers the pipeline routes to the Echo group.
func (h *PipelineHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/snapshots/build", h.TriggerSnapshotBuild)
	g.POST("/verification/run", h.TriggerVerification)
	g.POST("/themes/aggregate", h.TriggerThemeAggregation)
	g.GET("/snapshots/:stock_code", h.GetSnapshots)
	g.GET("/themes/accuracy", h.GetThemeAccuracy)
	g.GET("/verification/runs", h.GetVerificationRuns)
	g.POST("/indicators", h.SetIndicators)
	g.POST("/events/similar", h.FindSimilarEvents)
	g.POST("/news", h.IngestNews)
}

// TriggerSnapshotBuild enqueues a snapshot build job for one market.
func (h *PipelineHandler) TriggerSnapshotBuild(c echo.Context) error {
	return h.triggerJob(c, dto.JobTypeSnapshotBuild)
}

// TriggerVerification enqueues a verification run for one market.
func (h *PipelineHandler) TriggerVerification(c echo.Context) error {
	return h.triggerJob(c, dto.JobTypeVerification)
}

// TriggerThemeAggregation enqueues a theme accuracy aggregation for one market.
func (h *PipelineHandler) TriggerThemeAggregation(c echo.Context) error {
	return h.triggerJob(c, dto.JobTypeThemeAggregation)
}

func (h *PipelineHandler) triggerJob(c echo.Context, jobType string) error {
	var req dto.TriggerJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if !entity.IsValidMarket(req.Market) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown market"})
	}

	target := utils.DateOnly(utils.TimeNowKST())
	if req.TargetDate != "" {
		parsed, err := parseDate(req.TargetDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid target_date, expected YYYY-MM-DD"})
		}
		target = parsed
	}

	var from *time.Time
	if req.DateFrom != nil {
		parsed, err := parseDate(*req.DateFrom)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid date_from, expected YYYY-MM-DD"})
		}
		from = &parsed
	}

	if err := h.scheduler.EnqueueJob(c.Request().Context(), jobType, req.Market, target, from); err != nil {
		h.logger.Error("Failed to enqueue job", logger.ErrorField(err), logger.StringField("type", jobType))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to enqueue job"})
	}

	return c.JSON(http.StatusAccepted, dto.TriggerJobResponse{
		Type:       jobType,
		Market:     req.Market,
		TargetDate: target,
		EnqueuedAt: utils.TimeNowKST(),
	})
}

// GetSnapshots returns the feature snapshots of one stock in a date range.
func (h *PipelineHandler) GetSnapshots(c echo.Context) error {
	stockCode := c.Param("stock_code")
	from, err := parseDate(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid 'from' date, expected YYYY-MM-DD"})
	}
	to, err := parseDate(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid 'to' date, expected YYYY-MM-DD"})
	}

	snapshots, err := h.snapshotRepo.FindByStockRange(c.Request().Context(), stockCode, from, to)
	if err != nil {
		h.logger.Error("Failed to get snapshots", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get snapshots"})
	}
	return c.JSON(http.StatusOK, snapshots)
}

// GetThemeAccuracy returns the aggregated theme accuracy rows for one date.
func (h *PipelineHandler) GetThemeAccuracy(c echo.Context) error {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid 'date', expected YYYY-MM-DD"})
	}
	market := c.QueryParam("market")
	if !entity.IsValidMarket(market) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown market"})
	}

	records, err := h.themeRepo.FindByDate(c.Request().Context(), date, market)
	if err != nil {
		h.logger.Error("Failed to get theme accuracy", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get theme accuracy"})
	}
	return c.JSON(http.StatusOK, records)
}

// GetVerificationRuns returns the verification run logs for one date.
func (h *PipelineHandler) GetVerificationRuns(c echo.Context) error {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid 'date', expected YYYY-MM-DD"})
	}
	market := c.QueryParam("market")
	if !entity.IsValidMarket(market) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown market"})
	}

	runs, err := h.runLogRepo.FindByDate(c.Request().Context(), date, market)
	if err != nil {
		h.logger.Error("Failed to get verification runs", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get verification runs"})
	}
	return c.JSON(http.StatusOK, runs)
}

// SetIndicators caches the market-wide indicators for one date. Snapshot
// builds read these; missing indicators leave the market block NULL.
func (h *PipelineHandler) SetIndicators(c echo.Context) error {
	var req dto.SetIndicatorsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if !entity.IsValidMarket(req.Market) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown market"})
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid 'date', expected YYYY-MM-DD"})
	}

	h.indicatorCache.Set(req.Market, date, dto.MarketIndicators{
		MarketReturn:   req.MarketReturn,
		VixChange:      req.VixChange,
		FxChange:       req.FxChange,
		PeerDisclosure: req.PeerDisclosure,
	})
	return c.NoContent(http.StatusNoContent)
}

// FindSimilarEvents scores historical analogs against the posted event.
func (h *PipelineHandler) FindSimilarEvents(c echo.Context) error {
	var req dto.SimilarEventsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if !entity.IsValidMarket(req.Market) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown market"})
	}
	refDate, err := parseDate(req.ReferenceDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid reference_date, expected YYYY-MM-DD"})
	}

	cfg := h.similarityDefaults
	if req.LookbackDays != nil {
		cfg.LookbackDays = *req.LookbackDays
	}
	if req.Threshold != nil {
		cfg.SimilarityThreshold = *req.Threshold
	}
	if req.MaxResults != nil {
		cfg.MaxResults = *req.MaxResults
	}
	if req.SameMarketOnly != nil {
		cfg.SameMarketOnly = *req.SameMarketOnly
	}

	event := &entity.MarketEvent{
		Market:      req.Market,
		EventType:   req.EventType,
		Direction:   req.Direction,
		Magnitude:   req.Magnitude,
		Credibility: req.Credibility,
		OccurredAt:  refDate,
	}
	results, err := h.similarity.RetrieveSimilar(c.Request().Context(), event, cfg, refDate)
	if err != nil {
		if errors.Is(err, service.ErrInvalidConfig) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to retrieve similar events", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve similar events"})
	}
	return c.JSON(http.StatusOK, results)
}

// IngestNews accepts one normalized news item from an external fetcher.
func (h *PipelineHandler) IngestNews(c echo.Context) error {
	var req dto.IngestNewsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	publishedAt, err := time.Parse(time.RFC3339, req.PublishedAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid published_at, expected RFC3339"})
	}

	record, err := h.ingest.Ingest(c.Request().Context(), dto.RawNews{
		StockCode:    req.StockCode,
		Market:       req.Market,
		Title:        req.Title,
		Content:      req.Content,
		Source:       req.Source,
		PublishedAt:  publishedAt,
		IsDisclosure: req.IsDisclosure,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownMarket) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown market"})
		}
		h.logger.Error("Failed to ingest news", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, record)
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, utils.LocationKST())
}
