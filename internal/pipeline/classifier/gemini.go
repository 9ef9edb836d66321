package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stock-feature-pipeline/internal/pipeline/config"
	"stock-feature-pipeline/internal/pipeline/dto"
	"stock-feature-pipeline/pkg/logger"
	"stock-feature-pipeline/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const maxThemes = 2

// geminiClassifier scores news via the Google Gemini API.
type geminiClassifier struct {
	cfg            *config.Config
	logger         *logger.Logger
	genAiClient    *genai.Client
	requestLimiter *rate.Limiter
	tokenLimiter   *ratelimit.TokenLimiter
}

// NewGeminiClassifier creates a Gemini-backed classifier with request and
// token rate limiting.
func NewGeminiClassifier(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (Classifier, error) {
	if cfg.Gemini.MaxRequestPerMinute <= 0 {
		return nil, fmt.Errorf("gemini max_request_per_minute must be positive")
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)

	return &geminiClassifier{
		cfg:            cfg,
		logger:         log,
		genAiClient:    genAiClient,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute),
	}, nil
}

// Classify sends the news text to Gemini and parses its JSON verdict.
func (c *geminiClassifier) Classify(ctx context.Context, title, content string) (*dto.NewsClassification, error) {
	prompt := buildClassifyPrompt(title, content)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}

	tokenResp, err := c.genAiClient.Models.CountTokens(ctx, c.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}
	if err := c.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}
	if err := c.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := c.genAiClient.Models.GenerateContent(ctx, c.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	return parseClassification(resp.Text())
}

func parseClassification(raw string) (*dto.NewsClassification, error) {
	raw = strings.Trim(raw, "`json\n`")

	var result dto.NewsClassification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification: %w", err)
	}

	if result.SentimentMagnitude < -1 {
		result.SentimentMagnitude = -1
	}
	if result.SentimentMagnitude > 1 {
		result.SentimentMagnitude = 1
	}
	if len(result.Themes) > maxThemes {
		result.Themes = result.Themes[:maxThemes]
	}
	return &result, nil
}

func buildClassifyPrompt(title, content string) string {
	return fmt.Sprintf(`You are an equity news analyst. Classify the following article and answer with JSON only:

{
  "sentiment_label": "positive | neutral | negative",
  "sentiment_magnitude": {-1.0 to 1.0, signed strength of the sentiment},
  "themes": ["{up to 2 coarse sector/topic tags, e.g. semiconductors, batteries}"],
  "confidence": {0.0 - 1.0}
}

Title: %s

Content:
%s`, title, content)
}
