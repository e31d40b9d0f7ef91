package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/lungscan/internal/domain/ai"
)

const (
	defaultMaxTokens = 1024

	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultOpenRouterModel = "mistralai/mistral-7b-instruct"
)

type Client struct {
	*openai.Client
	Model     string
	MaxTokens int
}

// Options for building a client. BaseURL empty means api.openai.com.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

func NewClient(apiKey, model string) *Client {
	return New(Options{APIKey: apiKey, Model: model})
}

// NewOpenRouter points the OpenAI-compatible client at OpenRouter.
func NewOpenRouter(apiKey, model string) *Client {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return New(Options{APIKey: apiKey, Model: model, BaseURL: OpenRouterBaseURL, MaxTokens: 250})
}

func New(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, MaxTokens: maxTokens}
}

// Complete sends one system+user exchange. Exactly one HTTP attempt is made.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(c.Model, "o1") || strings.HasPrefix(c.Model, "o3") || strings.HasPrefix(c.Model, "o4") || strings.HasPrefix(c.Model, "gpt-5") {
		req.MaxCompletionTokens = c.MaxTokens
	} else {
		req.MaxTokens = c.MaxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", domai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", domai.ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}
