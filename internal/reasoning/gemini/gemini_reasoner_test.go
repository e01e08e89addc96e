package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/config"
	"gstaudit/internal/domain"
	"gstaudit/internal/port"
	"gstaudit/internal/reasoning"
	"gstaudit/internal/reasoning/gemini"
)

func generateServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func candidate(text, finish string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"parts": []map[string]any{{"text": text}}},
			"finishReason": finish,
		}},
	}
}

var request = port.ReasoningRequest{
	CheckID:  "B4",
	Question: "Is this a composite supply taxed at the principal supply rate?",
	Context:  map[string]any{"descriptions": []string{"Machine with transport"}},
}

func newReasoner(t *testing.T, url string) *gemini.Reasoner {
	t.Helper()
	r, err := gemini.NewReasoner(&config.ReasoningProviderConfig{APIKey: "test-key", BaseURL: url})
	require.NoError(t, err)
	return r
}

func TestNewReasoner_RequiresKey(t *testing.T) {
	_, err := gemini.NewReasoner(&config.ReasoningProviderConfig{})
	assert.Error(t, err)
}

func TestReasoner_Reason(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := generateServer(t, func(w http.ResponseWriter, body map[string]any) {
			gen := body["generationConfig"].(map[string]any)
			assert.Equal(t, "application/json", gen["responseMimeType"])
			assert.Contains(t, body, "systemInstruction")
			_ = json.NewEncoder(w).Encode(candidate(`{"status":"PASS","confidence":0.82,"reasoning":"principal supply is the machine"}`, "STOP"))
		})

		out, err := newReasoner(t, srv.URL).Reason(context.Background(), request)
		require.NoError(t, err)
		assert.Equal(t, "PASS", out.Status)
		assert.Equal(t, 0.82, out.Confidence)
		assert.Equal(t, "gemini-2.0-flash", out.Model)
		assert.Equal(t, "gemini", newReasoner(t, srv.URL).Name())
	})

	t.Run("rate_limited", func(t *testing.T) {
		srv := generateServer(t, func(w http.ResponseWriter, _ map[string]any) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := newReasoner(t, srv.URL).Reason(context.Background(), request)
		var rl *reasoning.RateLimitError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, "gemini", rl.Provider)
		assert.Equal(t, 3*time.Second, rl.RetryAfter)
	})

	t.Run("truncated", func(t *testing.T) {
		srv := generateServer(t, func(w http.ResponseWriter, _ map[string]any) {
			_ = json.NewEncoder(w).Encode(candidate(`{"status":"PA`, "MAX_TOKENS"))
		})

		_, err := newReasoner(t, srv.URL).Reason(context.Background(), request)
		assert.ErrorIs(t, err, domain.ErrMalformedReasoning)
	})

	t.Run("no_candidates", func(t *testing.T) {
		srv := generateServer(t, func(w http.ResponseWriter, _ map[string]any) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		})

		_, err := newReasoner(t, srv.URL).Reason(context.Background(), request)
		assert.ErrorIs(t, err, domain.ErrMalformedReasoning)
	})
}
