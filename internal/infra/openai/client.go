package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
)

const defaultModel = "gpt-4.1-mini"

// Config задаёт параметры клиента.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client выполняет Chat Completions запросы.
type Client struct {
	client openai.Client
	model  string
	apiKey string
}

var _ domain.Completer = (*Client)(nil)

// NewClient создаёт клиента OpenAI-совместимого API.
func NewClient(cfg Config) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	return &Client{client: openai.NewClient(opts...), model: model, apiKey: cfg.APIKey}
}

// Model возвращает имя используемой модели.
func (c *Client) Model() string { return c.model }

// Complete отправляет системную инструкцию и промпт, возвращает текст первого ответа.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("openai: api key is empty")
	}
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	metrics.ObserveNetworkRequest("openai", "chat_completions", c.model, start, err)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	metrics.ObserveLLMGeneration(c.model, time.Since(start), int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens), int(resp.Usage.TotalTokens))
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
