// Package llm relays farmer questions to an OpenAI-compatible gateway.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/biosecureindia/biosecure/internal/llm/prompts"
	"github.com/biosecureindia/biosecure/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://ai.gateway.lovable.dev/v1"
	DefaultModel   = "google/gemini-2.5-flash"

	temperature = 0.8
	maxTokens   = 1000
)

var (
	ErrNotConfigured   = errors.New("LLM API key is not configured")
	ErrRateLimited     = errors.New("gateway rate limit exceeded")
	ErrPaymentRequired = errors.New("gateway payment required")
	ErrEmptyMessage    = errors.New("message is required")
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
	ready bool
}

// New creates a new LLM client. An empty apiKey yields a client whose calls
// fail with ErrNotConfigured.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	config.BaseURL = baseURL
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
		ready: apiKey != "",
	}
}

// Chat sends the system prompt for req.Language, the prior history and the new
// message to the gateway and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, req model.ChatRequest) (string, error) {
	if !c.ready {
		return "", ErrNotConfigured
	}
	message := prompts.Sanitize(req.Message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	system, err := prompts.System(req.Language)
	if err != nil {
		return "", err
	}

	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	for _, m := range prompts.History(req.History) {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("chat reply", "model", c.model, "language", req.Language, "history", len(msgs)-2, "chars", len(reply))
	return reply, nil
}

// classify maps gateway status codes onto the relay's sentinel errors.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrPaymentRequired
	}
	return fmt.Errorf("AI gateway error: %w", err)
}
