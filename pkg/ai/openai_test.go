package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/aiflow/pkg/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	t.Parallel()

	var request map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"A short summary."}}]}`))
	}))
	defer server.Close()

	client := ai.NewOpenAIClient(slog.Default(), "sk-test", ai.WithBaseURL(server.URL+"/"), ai.WithHTTPClient(server.Client()))

	text, err := client.Complete(context.Background(), "Summarize", "gpt-4o-mini", []string{"https://img.example/1.png", ""})
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", text)

	assert.Equal(t, "gpt-4o-mini", request["model"])
	assert.InDelta(t, 1000, request["max_tokens"], 0)
	assert.Equal(t, []any{
		map[string]any{
			"role": "user",
			"content": []any{
				map[string]any{"type": "text", "text": "Summarize"},
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://img.example/1.png"}},
			},
		},
	}, request["messages"])
}

func TestOpenAIClient_Complete_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		_, err := ai.NewOpenAIClient(slog.Default(), "").Complete(context.Background(), "p", "m", nil)
		require.ErrorIs(t, err, ai.ErrMissingAPIKey)
	})

	t.Run("api error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
		}))
		defer server.Close()

		_, err := ai.NewOpenAIClient(slog.Default(), "k", ai.WithBaseURL(server.URL)).Complete(context.Background(), "p", "m", nil)

		var apiErr *ai.APIError

		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "OpenAI API error (HTTP 429): Rate limit reached", err.Error())
	})

	t.Run("error without message", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := ai.NewOpenAIClient(slog.Default(), "k", ai.WithBaseURL(server.URL)).Complete(context.Background(), "p", "m", nil)
		require.EqualError(t, err, "OpenAI API error (HTTP 502): Unknown error")
	})

	t.Run("unexpected body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		_, err := ai.NewOpenAIClient(slog.Default(), "k", ai.WithBaseURL(server.URL)).Complete(context.Background(), "p", "m", nil)
		require.ErrorIs(t, err, ai.ErrUnexpectedResponse)
	})
}
