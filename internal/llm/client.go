// internal/llm/client.go
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"epd-assistant/internal/common/config"
	"epd-assistant/internal/common/logger"
)

var (
	ErrEmptyResponse = errors.New("empty model response")
)

// modelAliases maps frontend model selectors to served model names. Unknown
// selectors fall back to the configured default.
var modelAliases = map[string]string{
	"llama3.1":                 "llama3.1",
	"mistral":                  "mistral",
	"llama3.1-3b":              "llama3.1-3b",
	"Llama-3.2-1B-Instruct":    "llama3.1",
	"Mistral-7B-Instruct-v0.2": "mistral",
	"Llama-3.2-3B":             "llama3.1-3b",
}

// Client provides the generation and embedding capabilities over an
// OpenAI-compatible API. Both calls own their timeout; neither retries.
type Client struct {
	api    *openai.Client
	cfg    config.LLMConfig
	logger logger.Logger
}

func NewClient(cfg config.LLMConfig, log logger.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: log.With(map[string]interface{}{"component": "llm"}),
	}
}

// ResolveModel normalizes a request's model selector to a served model name.
func (c *Client) ResolveModel(selector string) string {
	if m, ok := modelAliases[selector]; ok {
		return m
	}
	return c.cfg.DefaultModel
}

// Generate submits a prompt to the generation capability and returns the
// trimmed answer text.
func (c *Client) Generate(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = c.cfg.DefaultModel
	}

	timeout := time.Duration(c.cfg.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("generation completed", map[string]interface{}{
		"model":      model,
		"durationMs": time.Since(start).Milliseconds(),
		"tokens":     resp.Usage.TotalTokens,
	})

	return answer, nil
}

// Embed converts text into a fixed-length vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	timeout := time.Duration(c.cfg.EmbedTimeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	return resp.Data[0].Embedding, nil
}
