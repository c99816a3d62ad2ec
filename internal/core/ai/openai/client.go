package openai

import (
	"context"
	"fmt"

	"macro-recipe-generator/internal/core/ai/provider"
	"macro-recipe-generator/internal/infrastructure/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client 以官方 SDK 呼叫 Chat Completions
type Client struct {
	client openai.Client
	model  string
}

// NewClient 創建 OpenAI 客戶端，SDK 的自動重試被關閉
func NewClient(cfg *config.Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAI.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if cfg.OpenAI.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.OpenAI.Timeout))
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Completion.Model,
	}
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case provider.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}
	content := completion.Choices[0].Message.Content
	if content == "" {
		return nil, provider.ErrEmptyContent
	}

	return &provider.Response{
		Content: content,
		Usage: provider.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

func (c *Client) Name() string {
	return config.ProviderOpenAI
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) Close() error {
	return nil
}
