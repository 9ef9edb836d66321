package config

import (
	"time"

	"stock-feature-pipeline/pkg/config"
)

// Scoring holds composite-score weights and component parameters.
type Scoring struct {
	RecencyWeight    float64       `mapstructure:"recency_weight"`
	FrequencyWeight  float64       `mapstructure:"frequency_weight"`
	SentimentWeight  float64       `mapstructure:"sentiment_weight"`
	DisclosureWeight float64       `mapstructure:"disclosure_weight"`
	RecencyHalfLife  time.Duration `mapstructure:"recency_half_life"`
	FrequencyMax     int           `mapstructure:"frequency_max"`
}

// Pipeline holds the tuning knobs of the batch pipeline.
type Pipeline struct {
	Markets               []string `mapstructure:"markets"`
	CrossThemeLookback    int      `mapstructure:"cross_theme_lookback_days"`
	SnapshotBatchSize     int      `mapstructure:"snapshot_batch_size"`
	PriceWarmupDays       int      `mapstructure:"price_warmup_days"`
	DirectionThresholdPct float64  `mapstructure:"direction_threshold_pct"`

	SnapshotCronSpec     string `mapstructure:"snapshot_cron_spec"`
	VerificationCronSpec string `mapstructure:"verification_cron_spec"`
	ThemeCronSpec        string `mapstructure:"theme_cron_spec"`

	JobTimeout         time.Duration `mapstructure:"job_timeout"`
	JobRetryInterval   time.Duration `mapstructure:"job_retry_interval"`
	JobMaxIdleDuration time.Duration `mapstructure:"job_max_idle_duration"`
	JobMaxRetry        int           `mapstructure:"job_max_retry"`
	IndicatorCacheTTL  time.Duration `mapstructure:"indicator_cache_ttl"`
}

// Similarity holds defaults for the event similarity retriever.
type Similarity struct {
	LookbackDays        int     `mapstructure:"lookback_days"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MaxResults          int     `mapstructure:"max_results"`
	SameMarketOnly      bool    `mapstructure:"same_market_only"`
}

// Gemini holds the configuration for the Gemini classifier backend.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// Classifier selects the external scoring oracle backend.
type Classifier struct {
	Provider string `mapstructure:"provider"`
}

// Config holds the full configuration for the pipeline service.
type Config struct {
	App        config.App      `mapstructure:"app"`
	Logger     config.Logger   `mapstructure:"logger"`
	Database   config.Database `mapstructure:"database"`
	Redis      config.Redis    `mapstructure:"redis"`
	API        config.API      `mapstructure:"api"`
	Telegram   config.Telegram `mapstructure:"telegram"`
	Scoring    Scoring         `mapstructure:"scoring"`
	Pipeline   Pipeline        `mapstructure:"pipeline"`
	Similarity Similarity      `mapstructure:"similarity"`
	Classifier Classifier      `mapstructure:"classifier"`
	Gemini     Gemini          `mapstructure:"gemini"`
}

// Load loads the pipeline configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scoring.RecencyWeight == 0 && c.Scoring.FrequencyWeight == 0 &&
		c.Scoring.SentimentWeight == 0 && c.Scoring.DisclosureWeight == 0 {
		c.Scoring.RecencyWeight = 0.4
		c.Scoring.FrequencyWeight = 0.3
		c.Scoring.SentimentWeight = 0.2
		c.Scoring.DisclosureWeight = 0.1
	}
	if c.Scoring.RecencyHalfLife == 0 {
		c.Scoring.RecencyHalfLife = 24 * time.Hour
	}
	if c.Scoring.FrequencyMax == 0 {
		c.Scoring.FrequencyMax = 50
	}
	if len(c.Pipeline.Markets) == 0 {
		c.Pipeline.Markets = []string{"KOSPI", "KOSDAQ"}
	}
	if c.Pipeline.CrossThemeLookback == 0 {
		c.Pipeline.CrossThemeLookback = 7
	}
	if c.Pipeline.SnapshotBatchSize == 0 {
		c.Pipeline.SnapshotBatchSize = 100
	}
	if c.Pipeline.PriceWarmupDays == 0 {
		c.Pipeline.PriceWarmupDays = 60
	}
	if c.Pipeline.DirectionThresholdPct == 0 {
		c.Pipeline.DirectionThresholdPct = 1.0
	}
	if c.Pipeline.JobTimeout == 0 {
		c.Pipeline.JobTimeout = 30 * time.Minute
	}
	if c.Pipeline.JobRetryInterval == 0 {
		c.Pipeline.JobRetryInterval = 5 * time.Minute
	}
	if c.Pipeline.JobMaxIdleDuration == 0 {
		c.Pipeline.JobMaxIdleDuration = 30 * time.Minute
	}
	if c.Pipeline.JobMaxRetry == 0 {
		c.Pipeline.JobMaxRetry = 3
	}
	if c.Pipeline.IndicatorCacheTTL == 0 {
		c.Pipeline.IndicatorCacheTTL = 24 * time.Hour
	}
	if c.Similarity.LookbackDays == 0 {
		c.Similarity.LookbackDays = 365
	}
	if c.Similarity.SimilarityThreshold == 0 {
		c.Similarity.SimilarityThreshold = 0.5
	}
	if c.Similarity.MaxResults == 0 {
		c.Similarity.MaxResults = 3
	}
}
