package consumer

import (
	"context"
	"sync"
	"time"

	"stock-feature-pipeline/internal/pipeline/config"
	"stock-feature-pipeline/internal/pipeline/service"
	"stock-feature-pipeline/pkg/common"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisConsumer manages the consumption of pipeline jobs from the Redis streams.
type RedisConsumer struct {
	cfg                *config.Config
	redisClient        *redis.Client
	pipelineJobService service.PipelineJobService
	logger             *logger.Logger
	stopChan           chan struct{}
	wg                 sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	pipelineJobService service.PipelineJobService,
	log *logger.Logger,
) *RedisConsumer {
	return &RedisConsumer{
		cfg:                cfg,
		redisClient:        redisClient,
		pipelineJobService: pipelineJobService,
		logger:             log,
		stopChan:           make(chan struct{}),
	}
}

// Start begins the consumer's job processing loops.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	c.ensureGroups(ctx)

	c.RegisterStreamHandler(ctx, c.pipelineJobService.ProcessSnapshotTask, common.RedisStreamSnapshotBuild, c.cfg.Pipeline.JobTimeout)
	c.RegisterStreamHandler(ctx, c.pipelineJobService.ProcessVerificationTask, common.RedisStreamVerification, c.cfg.Pipeline.JobTimeout)
	c.RegisterStreamHandler(ctx, c.pipelineJobService.ProcessThemeTask, common.RedisStreamThemeAggregation, c.cfg.Pipeline.JobTimeout)

	c.RegisterTickerHandler(ctx, c.pipelineJobService.ProcessRetries, c.cfg.Pipeline.JobRetryInterval, c.cfg.Pipeline.JobTimeout, "pipeline-retry")
}

func (c *RedisConsumer) ensureGroups(ctx context.Context) {
	for _, stream := range []string{
		common.RedisStreamSnapshotBuild,
		common.RedisStreamVerification,
		common.RedisStreamThemeAggregation,
	} {
		if err := c.redisClient.XGroupCreateMkStream(ctx, stream, common.RedisStreamGroup, "0").Err(); err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
			c.logger.Error("Failed to create consumer group", logger.ErrorField(err), logger.StringField("stream", stream))
		}
	}
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
