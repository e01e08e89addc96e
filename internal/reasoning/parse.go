package reasoning

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
)

// ParseVerdict extracts the JSON verdict from raw model output. Code fences
// and surrounding prose are tolerated; anything else wraps
// domain.ErrMalformedReasoning.
func ParseVerdict(raw string) (*port.ReasoningResponse, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in %q", domain.ErrMalformedReasoning, truncate(raw, 120))
	}

	var resp port.ReasoningResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedReasoning, err)
	}
	if err := ValidateResponse(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateResponse normalizes the status and rejects out-of-range values.
func ValidateResponse(resp *port.ReasoningResponse) error {
	resp.Status = strings.ToUpper(strings.TrimSpace(resp.Status))
	switch domain.CheckStatus(resp.Status) {
	case domain.CheckStatusPass, domain.CheckStatusFail, domain.CheckStatusWarning:
	default:
		return fmt.Errorf("%w: unexpected status %q", domain.ErrMalformedReasoning, resp.Status)
	}
	if math.IsNaN(resp.Confidence) || resp.Confidence < 0 || resp.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", domain.ErrMalformedReasoning, resp.Confidence)
	}
	if strings.TrimSpace(resp.Reasoning) == "" {
		return fmt.Errorf("%w: empty reasoning", domain.ErrMalformedReasoning)
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
