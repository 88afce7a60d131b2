// Package ai provides chat completion clients used by AI model nodes.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/aiflow/pkg/httpclient"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultMaxTokens = 1000
	DefaultTimeout   = 60 * time.Second
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("OpenAI API key is not set")

// ErrUnexpectedResponse is returned when a successful response has no message content.
var ErrUnexpectedResponse = errors.New("unexpected OpenAI API response structure")

// Completer produces a completion for a prompt and optional image references.
type Completer interface {
	Complete(ctx context.Context, prompt, model string, imageURLs []string) (string, error)
}

// APIError is a non-200 response from the completion endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenAI API error (HTTP %d): %s", e.StatusCode, e.Message)
}

type OpenAIClient struct {
	logger     *slog.Logger
	apiKey     string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

type Option func(*OpenAIClient)

// WithBaseURL points the client at another OpenAI compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *OpenAIClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenAIClient) {
		c.httpClient = client
	}
}

func NewOpenAIClient(logger *slog.Logger, apiKey string, opts ...Option) *OpenAIClient {
	client := &OpenAIClient{
		logger:     logger.With("module", "openai"),
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		maxTokens:  DefaultMaxTokens,
		httpClient: httpclient.New(DefaultTimeout),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a single user message made of the prompt text and image parts.
func (c *OpenAIClient) Complete(ctx context.Context, prompt, model string, imageURLs []string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	message := chatMessage{Role: "user", Content: []contentPart{}}

	if prompt != "" {
		message.Content = append(message.Content, contentPart{Type: "text", Text: prompt})
	}

	for _, url := range imageURLs {
		if url == "" {
			continue
		}

		message.Content = append(message.Content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
	}

	payload, err := json.Marshal(chatRequest{
		Model:     model,
		Messages:  []chatMessage{message},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "OpenAI API call failed", "error", err)

		return "", fmt.Errorf("API call failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WarnContext(ctx, "Failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var decoded chatResponse

	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode != http.StatusOK {
		message := "Unknown error"
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			message = decoded.Error.Message
		}

		c.logger.ErrorContext(ctx, "OpenAI API error", "http_code", resp.StatusCode, "error", message)

		return "", &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if decodeErr != nil || len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == nil {
		c.logger.ErrorContext(ctx, "Unexpected OpenAI API response", "body", string(body))

		return "", ErrUnexpectedResponse
	}

	c.logger.InfoContext(ctx, "OpenAI API call successful", "model", model, "image_count", len(imageURLs))

	return *decoded.Choices[0].Message.Content, nil
}
