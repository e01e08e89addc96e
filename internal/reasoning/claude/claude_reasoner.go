// Package claude implements port.Reasoner over the Anthropic Messages API.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gstaudit/internal/config"
	"gstaudit/internal/domain"
	"gstaudit/internal/port"
	"gstaudit/internal/reasoning"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-sonnet-4-20250514"
)

func init() {
	reasoning.RegisterProvider("claude", func(cfg *config.ReasoningProviderConfig) (port.Reasoner, error) {
		return NewReasoner(cfg)
	})
}

// Reasoner implements port.Reasoner using the Anthropic Messages API.
type Reasoner struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewReasoner creates a Claude-backed reasoner. cfg.BaseURL overrides the
// API endpoint.
func NewReasoner(cfg *config.ReasoningProviderConfig) (*Reasoner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: api key is required")
	}
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = apiURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Reasoner{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (r *Reasoner) Name() string { return "claude" }

func (r *Reasoner) Reason(ctx context.Context, in port.ReasoningRequest) (*port.ReasoningResponse, error) {
	reqBody := map[string]interface{}{
		"model":       r.model,
		"max_tokens":  1024,
		"temperature": 0,
		"system":      reasoning.SystemPrompt,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": reasoning.BuildPrompt(in),
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", r.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 300))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := reasoning.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
			return nil, reasoning.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, r.model)
}

type apiResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model string) (*port.ReasoningResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response: %v", domain.ErrMalformedReasoning, err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("%w: empty response from API", domain.ErrMalformedReasoning)
	}
	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("%w: output truncated (stop_reason: max_tokens)", domain.ErrMalformedReasoning)
	}

	out, err := reasoning.ParseVerdict(resp.Content[0].Text)
	if err != nil {
		return nil, err
	}
	out.Model = model
	if resp.Model != "" {
		out.Model = resp.Model
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
