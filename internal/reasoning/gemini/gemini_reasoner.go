// Package gemini implements port.Reasoner over the Gemini generateContent API.
package gemini

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
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel = "gemini-2.0-flash"
)

func init() {
	reasoning.RegisterProvider("gemini", func(cfg *config.ReasoningProviderConfig) (port.Reasoner, error) {
		return NewReasoner(cfg)
	})
}

// Reasoner implements port.Reasoner using Google's Gemini API.
type Reasoner struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewReasoner creates a Gemini-backed reasoner. cfg.BaseURL replaces the full
// generateContent URL.
func NewReasoner(cfg *config.ReasoningProviderConfig) (*Reasoner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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

func (r *Reasoner) Name() string { return "gemini" }

func (r *Reasoner) Reason(ctx context.Context, in port.ReasoningRequest) (*port.ReasoningResponse, error) {
	reqBody := map[string]interface{}{
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]interface{}{{"text": reasoning.SystemPrompt}},
		},
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": []map[string]interface{}{{"text": reasoning.BuildPrompt(in)}},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"temperature":      0,
			"maxOutputTokens":  1024,
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
	req.Header.Set("x-goog-api-key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 300))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := reasoning.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
			return nil, reasoning.NewRateLimitError("gemini", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, r.model)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
}

func parseResponse(body []byte, model string) (*port.ReasoningResponse, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response: %v", domain.ErrMalformedReasoning, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: empty response from API: no candidates", domain.ErrMalformedReasoning)
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == "MAX_TOKENS" {
		return nil, fmt.Errorf("%w: output truncated (finishReason: MAX_TOKENS)", domain.ErrMalformedReasoning)
	}
	if len(cand.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from API: no parts", domain.ErrMalformedReasoning)
	}

	out, err := reasoning.ParseVerdict(cand.Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}
	out.Model = model
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
