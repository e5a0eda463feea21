// Package openai backs the voice pipeline with an OpenAI-compatible
// chat model for utterances the rule scan cannot classify.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/usecase/voice"
)

const systemPrompt = `You classify shopping search utterances. ` +
	`Respond with a single JSON object and nothing else: ` +
	`{"intent": one of "product_search", "category_search", "price_filter", "rating_filter", "brand_search", ` +
	`"entities": {"query": "...", "category": "...", "brand": "...", "min_price": "...", "max_price": "...", "min_rating": "..."}}. ` +
	`Omit entity keys you cannot fill. Prices and ratings are bare numbers.`

// Extractor implements voice.Extractor via a chat completion.
type Extractor struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// Config holds the intent extractor settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	User    string
	Logger  *zap.Logger
}

// NewExtractor creates an OpenAI-compatible intent extractor.
func NewExtractor(cfg *Config) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: logger,
	}
}

type extractionPayload struct {
	Intent   string            `json:"intent"`
	Entities map[string]string `json:"entities"`
}

// Extract implements voice.Extractor.
func (e *Extractor) Extract(ctx context.Context, text string) (voice.Intent, map[string]string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		User:        e.user,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", nil, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("empty completion response")
	}

	var payload extractionPayload
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		e.logger.Warn("unparseable extraction payload", zap.String("content", content))
		return "", nil, fmt.Errorf("decode extraction payload: %w", err)
	}

	intent := voice.Intent(payload.Intent)
	switch intent {
	case voice.IntentProductSearch, voice.IntentCategorySearch, voice.IntentPriceFilter,
		voice.IntentRatingFilter, voice.IntentBrandSearch:
	default:
		intent = ""
	}
	return intent, payload.Entities, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Extractor) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("intent API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("intent API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("intent request failed: %w", err)
}
