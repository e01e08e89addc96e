package reasoning_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
	"gstaudit/internal/reasoning"
)

func TestParseVerdict(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		v, err := reasoning.ParseVerdict(`{"status":"PASS","confidence":0.9,"reasoning":"GTA under RCM","requires_review":false}`)
		require.NoError(t, err)
		assert.Equal(t, "PASS", v.Status)
		assert.Equal(t, 0.9, v.Confidence)
		assert.Equal(t, "GTA under RCM", v.Reasoning)
	})

	t.Run("fenced_and_lowercase", func(t *testing.T) {
		raw := "Here is my answer:\n```json\n{\"status\": \"warning\", \"confidence\": 0.5, \"reasoning\": \"unclear\"}\n```"
		v, err := reasoning.ParseVerdict(raw)
		require.NoError(t, err)
		assert.Equal(t, "WARNING", v.Status)
	})

	bad := map[string]string{
		"no_json":        "I cannot decide.",
		"broken_json":    `{"status": "PASS", "confidence": }`,
		"unknown_status": `{"status":"MAYBE","confidence":0.5,"reasoning":"x"}`,
		"confidence_gt1": `{"status":"PASS","confidence":1.2,"reasoning":"x"}`,
		"negative_conf":  `{"status":"FAIL","confidence":-0.1,"reasoning":"x"}`,
		"no_reasoning":   `{"status":"PASS","confidence":0.8,"reasoning":"  "}`,
	}
	for name, raw := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := reasoning.ParseVerdict(raw)
			assert.ErrorIs(t, err, domain.ErrMalformedReasoning)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	req := port.ReasoningRequest{
		CheckID:  "B10",
		Question: "Is reverse charge applied correctly?",
		Context: map[string]any{
			"sac":            "996791",
			"reverse_charge": false,
			"amount":         25000.0,
		},
		References: []string{"gst_reverse_charge.md#2: GTA services ...", " tds_sections.md#1: 194C ... "},
	}

	prompt := reasoning.BuildPrompt(req)
	assert.Equal(t, prompt, reasoning.BuildPrompt(req))
	assert.True(t, strings.HasPrefix(prompt, "Check B10: Is reverse charge applied correctly?"))

	amount := strings.Index(prompt, "- amount: 25000")
	rc := strings.Index(prompt, "- reverse_charge: false")
	sac := strings.Index(prompt, "- sac: 996791")
	require.True(t, amount >= 0 && rc >= 0 && sac >= 0, prompt)
	assert.Less(t, amount, rc)
	assert.Less(t, rc, sac)

	assert.Contains(t, prompt, "[1] gst_reverse_charge.md#2: GTA services ...")
	assert.Contains(t, prompt, "[2] tds_sections.md#1: 194C ...")
	assert.True(t, strings.HasSuffix(prompt, "Answer with the JSON object only."))
}
