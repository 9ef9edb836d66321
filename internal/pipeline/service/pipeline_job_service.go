package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stock-feature-pipeline/internal/entity"
	"stock-feature-pipeline/internal/pipeline/config"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/pkg/common"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/telegram"
	"stock-feature-pipeline/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// PipelineJobService consumes batch jobs from the redis streams and
// dispatches them to the pipeline components. One job covers one
// (type, market, date); jobs for different markets run independently.
type PipelineJobService interface {
	ProcessSnapshotTask(ctx context.Context)
	ProcessVerificationTask(ctx context.Context)
	ProcessThemeTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
	Execute(ctx context.Context, job dto.PipelineJob) error
}

// NewPipelineJobService creates the stream-driven job executor.
func NewPipelineJobService(
	cfg *config.Config,
	redisClient *redis.Client,
	builder SnapshotBuilder,
	engine VerificationEngine,
	aggregator ThemeAccuracyAggregator,
	notifier telegram.Notifier,
	log *logger.Logger,
) PipelineJobService {
	return &pipelineJobService{
		cfg:         cfg,
		redisClient: redisClient,
		builder:     builder,
		engine:      engine,
		aggregator:  aggregator,
		notifier:    notifier,
		logger:      log,
	}
}

type pipelineJobService struct {
	cfg         *config.Config
	redisClient *redis.Client
	builder     SnapshotBuilder
	engine      VerificationEngine
	aggregator  ThemeAccuracyAggregator
	notifier    telegram.Notifier
	logger      *logger.Logger
}

// ProcessSnapshotTask dequeues and executes a single snapshot build job.
func (s *pipelineJobService) ProcessSnapshotTask(ctx context.Context) {
	s.processStream(ctx, common.RedisStreamSnapshotBuild)
}

// ProcessVerificationTask dequeues and executes a single verification job.
func (s *pipelineJobService) ProcessVerificationTask(ctx context.Context) {
	s.processStream(ctx, common.RedisStreamVerification)
}

// ProcessThemeTask dequeues and executes a single theme aggregation job.
func (s *pipelineJobService) ProcessThemeTask(ctx context.Context) {
	s.processStream(ctx, common.RedisStreamThemeAggregation)
}

func (s *pipelineJobService) processStream(ctx context.Context, stream string) {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    2 * time.Second, // allow graceful shutdown
	}).Result()
	if err != nil {
		if err == context.Canceled || err == redis.Nil {
			return
		}
		s.logger.Error("Failed to read from stream", logger.ErrorField(err), logger.StringField("stream", stream))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}
	message := streams[0].Messages[0]

	job, ok := s.decodeJob(message)
	if !ok {
		// Malformed payloads are acked so they never wedge the stream.
		s.ackAndDelete(ctx, stream, message.ID)
		return
	}

	if err := s.Execute(ctx, *job); err != nil {
		s.logger.Error("Pipeline job failed",
			logger.ErrorField(err),
			logger.StringField("type", job.Type),
			logger.StringField("market", job.Market),
			logger.Field("message_id", message.ID))
		return
	}

	s.ackAndDelete(ctx, stream, message.ID)
}

// Execute dispatches one job to the matching pipeline component.
func (s *pipelineJobService) Execute(ctx context.Context, job dto.PipelineJob) error {
	if !entity.IsValidMarket(job.Market) {
		return ErrUnknownMarket
	}

	switch job.Type {
	case dto.JobTypeSnapshotBuild:
		from := job.TargetDate
		if job.DateFrom != nil {
			from = *job.DateFrom
		}
		created, err := s.builder.BuildMarket(ctx, job.Market, from, job.TargetDate)
		if err != nil {
			return err
		}
		s.logger.Info("Snapshot build job finished",
			logger.StringField("market", job.Market),
			logger.IntField("created", created))
		return nil
	case dto.JobTypeVerification:
		_, err := s.engine.VerifyDay(ctx, job.TargetDate, job.Market)
		return err
	case dto.JobTypeThemeAggregation:
		_, err := s.aggregator.AggregateThemes(ctx, job.TargetDate, job.Market)
		return err
	default:
		return fmt.Errorf("no handler for job type: %s", job.Type)
	}
}

// ProcessRetries reclaims jobs that stayed pending past the idle threshold
// and re-runs them, dropping jobs that exhausted their retry budget.
func (s *pipelineJobService) ProcessRetries(ctx context.Context) {
	for _, stream := range []string{
		common.RedisStreamSnapshotBuild,
		common.RedisStreamVerification,
		common.RedisStreamThemeAggregation,
	} {
		s.retryStream(ctx, stream)
	}
}

func (s *pipelineJobService) retryStream(ctx context.Context, stream string) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Pipeline.JobMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		s.logger.Error("Failed to claim pending job", logger.ErrorField(err), logger.StringField("stream", stream))
		return
	}
	if len(msgs) == 0 {
		return
	}
	msg := msgs[0]

	pendingInfo, err := s.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  common.RedisStreamGroup,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		s.logger.Error("Failed to get pending info", logger.ErrorField(err), logger.StringField("stream", stream))
		return
	}
	if len(pendingInfo) == 0 {
		return
	}

	job, ok := s.decodeJob(msg)
	if !ok {
		s.ackAndDelete(ctx, stream, msg.ID)
		return
	}

	if pendingInfo[0].RetryCount >= int64(s.cfg.Pipeline.JobMaxRetry) {
		s.logger.Error("Pipeline job retry count exceeded",
			logger.StringField("stream", stream),
			logger.StringField("type", job.Type),
			logger.StringField("market", job.Market),
			logger.IntField("retry_count", int(pendingInfo[0].RetryCount)))
		if s.notifier != nil {
			alert := telegram.FormatErrorAlertMessage(utils.TimeNowKST(),
				fmt.Sprintf("Pipeline job %s for market %s dropped after %d retries", job.Type, job.Market, pendingInfo[0].RetryCount))
			if err := s.notifier.SendMessage(alert); err != nil {
				s.logger.Error("Failed to send retry-exceeded alert", logger.ErrorField(err))
			}
		}
		s.ackAndDelete(ctx, stream, msg.ID)
		return
	}

	if err := s.Execute(ctx, *job); err != nil {
		s.logger.Error("Pipeline job retry failed", logger.ErrorField(err), logger.StringField("stream", stream))
		return
	}
	s.ackAndDelete(ctx, stream, msg.ID)
}

func (s *pipelineJobService) decodeJob(message redis.XMessage) (*dto.PipelineJob, bool) {
	payload, ok := message.Values["payload"].(string)
	if !ok {
		s.logger.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", message.ID))
		return nil, false
	}
	var job dto.PipelineJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.Field("message_id", message.ID))
		return nil, false
	}
	return &job, true
}

func (s *pipelineJobService) ackAndDelete(ctx context.Context, stream, messageID string) {
	if err := s.redisClient.XAck(ctx, stream, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.logger.Error("Failed to acknowledge message", logger.ErrorField(err), logger.Field("message_id", messageID))
		return
	}
	if err := s.redisClient.XDel(ctx, stream, messageID).Err(); err != nil {
		s.logger.Error("Failed to delete message", logger.ErrorField(err), logger.Field("message_id", messageID))
	}
}
