// Package llm wraps the external text-generation provider. The client walks
// an ordered fallback chain of models and degrades to a deterministic mock,
// so its contract is simple: Generate always returns a non-empty string and
// provider failures never propagate to callers.
package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the OpenRouter OpenAI-compatible endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Message is one chat message sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one generation call.
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Generator produces dialogue text. Implemented by Client and MockGenerator.
type Generator interface {
	Generate(ctx context.Context, req Request) string
}

// Config configures the provider client.
type Config struct {
	APIKey           string
	BaseURL          string
	Models           []string // fallback chain, tried in order
	ForceMock        bool
	TokenCostPer1K   float64 // USD, logged per call for cost visibility
	RequestTimeout   time.Duration
}

// Client calls the completion provider with model fallback. When no API key
// is configured (or mock is forced) every call takes the mock path.
type Client struct {
	api       *openai.Client
	models    []string
	mock      *MockGenerator
	mockOnly  bool
	costPer1K float64
	timeout   time.Duration
}

// New creates a provider client. The mock generator is always constructed so
// the fallback-of-last-resort is available even with a valid key.
func New(cfg Config) *Client {
	c := &Client{
		models:    cfg.Models,
		mock:      NewMockGenerator(),
		mockOnly:  cfg.ForceMock || cfg.APIKey == "",
		costPer1K: cfg.TokenCostPer1K,
		timeout:   cfg.RequestTimeout,
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if !c.mockOnly {
		apiCfg := openai.DefaultConfig(cfg.APIKey)
		apiCfg.BaseURL = cfg.BaseURL
		if apiCfg.BaseURL == "" {
			apiCfg.BaseURL = DefaultBaseURL
		}
		c.api = openai.NewClientWithConfig(apiCfg)
	}
	if c.mockOnly {
		slog.Info("Generation client running in mock mode")
	} else {
		slog.Info("Generation client initialized",
			"base_url", cfg.BaseURL, "models", cfg.Models)
	}
	return c
}

// Generate returns generated dialogue for the request. It iterates the model
// chain; a model is deemed failed on transport error, non-2xx status, or
// missing/empty content. The first non-empty sanitized result wins. When
// every model fails the deterministic mock answers instead; failures are
// logged, never returned.
func (c *Client) Generate(ctx context.Context, req Request) string {
	if c.mockOnly {
		return c.mock.Generate(ctx, req)
	}

	for _, model := range c.models {
		text, err := c.callModel(ctx, model, req)
		if err != nil {
			slog.Warn("Generation model failed, trying next",
				"model", model, "error", err)
			continue
		}
		sanitized := Sanitize(text)
		if sanitized == "" {
			slog.Warn("Generation model returned empty content after sanitization",
				"model", model)
			continue
		}
		c.logCost(model, req, sanitized)
		return sanitized
	}

	slog.Warn("All generation models failed, falling back to mock",
		"models", c.models)
	return c.mock.Generate(ctx, req)
}

// callModel issues a single completion request against one model.
func (c *Client) callModel(ctx context.Context, model string, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyResponse
	}
	return content, nil
}

// logCost records a rough cost estimate. Word count stands in for tokens;
// this is operator telemetry, not billing.
func (c *Client) logCost(model string, req Request, out string) {
	if c.costPer1K <= 0 {
		return
	}
	tokens := len(strings.Fields(out))
	for _, m := range req.Messages {
		tokens += len(strings.Fields(m.Content))
	}
	slog.Debug("Generation call cost estimate",
		"model", model,
		"approx_tokens", tokens,
		"approx_usd", float64(tokens)/1000*c.costPer1K)
}

type generationError string

func (e generationError) Error() string { return string(e) }

const errEmptyResponse = generationError("provider returned no content")

// LatestUserMessage returns the content of the last user-role message, or
// the last message of any role when no user message exists.
func LatestUserMessage(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	if len(msgs) > 0 {
		return msgs[len(msgs)-1].Content
	}
	return ""
}
