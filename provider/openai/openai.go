// Package openai talks to OpenAI-compatible APIs for both embeddings and
// chat completions. Build-time and query-time embeddings must come from the
// same Client so that they share one embedding space.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/flarexio/ragbox/llm"
	"github.com/flarexio/ragbox/vector"
)

const (
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	DefaultChatModel      = openai.GPT3Dot5Turbo
)

type Config struct {
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseURL"`
	EmbeddingModel string `yaml:"embeddingModel"`
	Dimensions     int    `yaml:"dimensions"`
	ChatModel      string `yaml:"chatModel"`

	// Timeout bounds one provider round trip; zero means no limit.
	Timeout time.Duration `yaml:"-"`
}

var (
	_ vector.Embedder      = (*Client)(nil)
	_ vector.BatchEmbedder = (*Client)(nil)
	_ llm.Provider         = (*Client)(nil)
)

type Client struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	dimensions     int
	chatModel      string
	log            *zap.Logger
}

func NewClient(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	log := zap.L().With(
		zap.String("provider", "openai"),
		zap.String("embedding_model", embeddingModel),
		zap.String("chat_model", chatModel),
	)

	return &Client{
		client:         openai.NewClientWithConfig(clientCfg),
		embeddingModel: openai.EmbeddingModel(embeddingModel),
		dimensions:     cfg.Dimensions,
		chatModel:      chatModel,
		log:            log,
	}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return embeddings[0], nil
}

// EmbedBatch returns one vector per input, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          c.embeddingModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, parseAPIError("embedding", err, vector.ErrProviderUnavailable)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d: %w",
			len(resp.Data), len(texts), vector.ErrProviderUnavailable)
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})

	embeddings := make([][]float32, len(data))
	for i := range data {
		embeddings[i] = data[i].Embedding
	}

	c.log.Debug("texts embedded",
		zap.Int("count", len(texts)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return embeddings, nil
}

// Complete sends one system and one user turn and returns the first
// choice's content verbatim.
func (c *Client) Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", parseAPIError("chat completion", err, llm.ErrCompletionFailed)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion response: %w", llm.ErrCompletionFailed)
	}

	c.log.Debug("chat completed",
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// parseAPIError keeps the provider's message and wraps the sentinel of the
// failed operation.
func parseAPIError(op string, err error, wrap error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("%s API error %d: %s: %w", op, reqErr.HTTPStatusCode, detail, wrap)
		}

		return fmt.Errorf("%s API error %d: %w", op, reqErr.HTTPStatusCode, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", op, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %s: %w", op, err.Error(), wrap)
}

func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}

	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}

	return ""
}
