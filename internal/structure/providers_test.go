package structure

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/recall/internal/models"
)

const modelReply = `{"summary":"Call Mom","category":"reminder","date":"2025-11-26T17:00:00","reminderNeeded":true}`

func TestOpenAIStructurer(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "llama-3.1-8b-instant",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": modelReply},
			}},
		})
	}))
	defer srv.Close()

	s := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "llama-3.1-8b-instant", Timeout: 5 * time.Second})
	d, err := s.Structure(context.Background(), "Remind me to call Mom at 5pm tomorrow", testNow)
	require.NoError(t, err)
	require.Equal(t, "Call Mom", d.Summary)
	require.Equal(t, models.CategoryReminder, d.Category)

	require.Equal(t, "llama-3.1-8b-instant", got["model"])
	rf, _ := got["response_format"].(map[string]any)
	require.Equal(t, "json_object", rf["type"])
}

func TestOpenAIStructurerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o"})
	_, err := s.Structure(context.Background(), "x", testNow)
	require.Error(t, err)

	c := NewClassifier(s, nil)
	d, degraded := c.Classify(context.Background(), "x", testNow)
	require.True(t, degraded)
	require.Equal(t, "x…", d.Summary)
}

func TestAnthropicStructurer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-3-5-haiku-latest",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]any{{"type": "text", "text": "```json\n" + modelReply + "\n```"}},
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer srv.Close()

	s := NewAnthropic(AnthropicConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-3-5-haiku-latest"})
	d, err := s.Structure(context.Background(), "Remind me to call Mom at 5pm tomorrow", testNow)
	require.NoError(t, err)
	require.Equal(t, models.CategoryReminder, d.Category)
	require.NotNil(t, d.Date)
}
