package service

import (
	"context"
	"encoding/json"
	"time"

	"stock-feature-pipeline/internal/pipeline/config"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/pkg/common"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// SchedulerService enqueues the daily pipeline jobs on their cron schedules,
// one job per configured market.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
	EnqueueJob(ctx context.Context, jobType, market string, target time.Time, from *time.Time) error
}

// NewSchedulerService creates the cron-driven job publisher.
func NewSchedulerService(cfg *config.Config, redisClient *redis.Client, log *logger.Logger) SchedulerService {
	return &schedulerService{
		cfg:         cfg,
		redisClient: redisClient,
		logger:      log,
		cron:        cron.New(cron.WithLocation(utils.LocationKST())),
	}
}

type schedulerService struct {
	cfg         *config.Config
	redisClient *redis.Client
	logger      *logger.Logger
	cron        *cron.Cron
}

func (s *schedulerService) Start(ctx context.Context) error {
	entries := []struct {
		spec    string
		jobType string
	}{
		{s.cfg.Pipeline.SnapshotCronSpec, dto.JobTypeSnapshotBuild},
		{s.cfg.Pipeline.VerificationCronSpec, dto.JobTypeVerification},
		{s.cfg.Pipeline.ThemeCronSpec, dto.JobTypeThemeAggregation},
	}

	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		jobType := e.jobType
		if _, err := s.cron.AddFunc(e.spec, func() {
			s.enqueueForAllMarkets(ctx, jobType)
		}); err != nil {
			return err
		}
		s.logger.Info("Registered pipeline schedule",
			logger.StringField("type", jobType),
			logger.StringField("spec", e.spec))
	}

	s.cron.Start()
	return nil
}

func (s *schedulerService) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

func (s *schedulerService) enqueueForAllMarkets(ctx context.Context, jobType string) {
	target := utils.DateOnly(utils.TimeNowKST())
	for _, market := range s.cfg.Pipeline.Markets {
		if err := s.EnqueueJob(ctx, jobType, market, target, nil); err != nil {
			s.logger.Error("Failed to enqueue pipeline job",
				logger.ErrorField(err),
				logger.StringField("type", jobType),
				logger.StringField("market", market))
		}
	}
}

// EnqueueJob publishes one job onto the stream matching its type.
func (s *schedulerService) EnqueueJob(ctx context.Context, jobType, market string, target time.Time, from *time.Time) error {
	job := dto.PipelineJob{
		Type:       jobType,
		Market:     market,
		TargetDate: target,
		DateFrom:   from,
		EnqueuedAt: utils.TimeNowKST(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	stream := streamForJobType(jobType)
	if err := s.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: common.RedisStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).Err(); err != nil {
		return err
	}

	s.logger.Info("Enqueued pipeline job",
		logger.StringField("type", jobType),
		logger.StringField("market", market),
		logger.StringField("target_date", target.Format("2006-01-02")))
	return nil
}

func streamForJobType(jobType string) string {
	switch jobType {
	case dto.JobTypeVerification:
		return common.RedisStreamVerification
	case dto.JobTypeThemeAggregation:
		return common.RedisStreamThemeAggregation
	default:
		return common.RedisStreamSnapshotBuild
	}
}
