// Package openai implements port.Reasoner over the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"gstaudit/internal/config"
	"gstaudit/internal/domain"
	"gstaudit/internal/port"
	"gstaudit/internal/reasoning"
)

const defaultModel = openai.GPT4oMini

func init() {
	reasoning.RegisterProvider("openai", func(cfg *config.ReasoningProviderConfig) (port.Reasoner, error) {
		return NewReasoner(cfg)
	})
}

// Reasoner implements port.Reasoner using go-openai.
type Reasoner struct {
	client *openai.Client
	model  string
}

// NewReasoner creates an OpenAI-backed reasoner. cfg.BaseURL points the client
// at an OpenAI-compatible endpoint.
func NewReasoner(cfg *config.ReasoningProviderConfig) (*Reasoner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	return &Reasoner{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

func (r *Reasoner) Name() string { return "openai" }

func (r *Reasoner) Reason(ctx context.Context, in port.ReasoningRequest) (*port.ReasoningResponse, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		MaxTokens:   1024,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reasoning.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: reasoning.BuildPrompt(in)},
		},
	})
	if err != nil {
		if tooManyRequests(err) {
			return nil, reasoning.NewRateLimitError("openai", err, 0)
		}
		return nil, fmt.Errorf("calling openai API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", domain.ErrMalformedReasoning)
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		return nil, fmt.Errorf("%w: output truncated (finish_reason: length)", domain.ErrMalformedReasoning)
	}

	out, err := reasoning.ParseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	out.Model = r.model
	if resp.Model != "" {
		out.Model = resp.Model
	}
	return out, nil
}

func tooManyRequests(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
