// Package enrichment produces the qualitative layer of a signal: a trade
// rationale, a confidence tier, a risk tier and a position size suggestion.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tradercopilot/signal-engine/internal/pipeline"
	"github.com/tradercopilot/signal-engine/internal/types"
	"github.com/tradercopilot/signal-engine/pkg/errors"
)

const systemPrompt = `You are a trading analyst reviewing machine-generated forex and crypto signals.
Given a signal and its strategy statistics, respond with a JSON object containing:
  "confidence_level": "High", "Medium" or "Low"
  "risk_rating": "Low", "Medium" or "High"
  "trade_explanation": a short paragraph explaining the trade setup in plain language
  "position_sizing": recommended position size as percent of capital (0.5 to 3.0)
  "key_risks": a list of the main risks for this trade
Base your verdict only on the data provided. Respond with JSON only.`

// ChatCompleter is the slice of the OpenAI client the enricher needs.
// Tests inject a fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIEnricher implements pipeline.Enricher on top of the OpenAI chat
// completion API with JSON response mode.
type OpenAIEnricher struct {
	client ChatCompleter
	model  string
}

// NewOpenAIEnricher creates an enricher using the given API key. The model
// defaults to gpt-4o when empty.
func NewOpenAIEnricher(apiKey, model string) (*OpenAIEnricher, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeEnrichmentFailed, "API key required")
	}

	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIEnricher{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// NewOpenAIEnricherWithClient creates an enricher with an injected chat
// client. Used by tests.
func NewOpenAIEnricherWithClient(client ChatCompleter, model string) *OpenAIEnricher {
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIEnricher{
		client: client,
		model:  model,
	}
}

// Enrich asks the model for a verdict on the signal. Malformed or
// out-of-range responses are rejected so the pipeline falls back to its
// conservative default.
func (e *OpenAIEnricher) Enrich(ctx context.Context, req pipeline.EnrichmentRequest) (pipeline.EnrichmentResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return pipeline.EnrichmentResponse{}, errors.Wrap(errors.ErrCodeEnrichmentFailed, "failed to encode enrichment request", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Review this signal:\n%s", string(payload)),
			},
		},
		MaxTokens:   1024,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return pipeline.EnrichmentResponse{}, errors.Wrap(errors.ErrCodeEnrichmentFailed, "openai API error", err)
	}

	if len(resp.Choices) == 0 {
		return pipeline.EnrichmentResponse{}, errors.New(errors.ErrCodeEnrichmentFailed, "empty completion response")
	}

	return parseEnrichment(resp.Choices[0].Message.Content)
}

// parseEnrichment decodes and validates the model's JSON verdict.
func parseEnrichment(content string) (pipeline.EnrichmentResponse, error) {
	content = strings.TrimSpace(content)

	var verdict pipeline.EnrichmentResponse
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return pipeline.EnrichmentResponse{}, errors.Wrap(errors.ErrCodeEnrichmentFailed, "failed to decode enrichment response", err)
	}

	switch verdict.ConfidenceLevel {
	case types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow:
	default:
		return pipeline.EnrichmentResponse{}, errors.Newf(errors.ErrCodeEnrichmentFailed, "invalid confidence level: %q", verdict.ConfidenceLevel)
	}

	switch verdict.RiskRating {
	case types.RiskLow, types.RiskMedium, types.RiskHigh:
	default:
		return pipeline.EnrichmentResponse{}, errors.Newf(errors.ErrCodeEnrichmentFailed, "invalid risk rating: %q", verdict.RiskRating)
	}

	if verdict.PositionSizing <= 0 || verdict.PositionSizing > 3.0 {
		return pipeline.EnrichmentResponse{}, errors.Newf(errors.ErrCodeEnrichmentFailed, "position sizing out of range: %.2f", verdict.PositionSizing)
	}

	if verdict.TradeExplanation == "" {
		return pipeline.EnrichmentResponse{}, errors.New(errors.ErrCodeEnrichmentFailed, "missing trade explanation")
	}

	return verdict, nil
}
