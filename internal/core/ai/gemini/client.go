package gemini

import (
	"context"
	"fmt"

	"macro-recipe-generator/internal/core/ai/provider"
	"macro-recipe-generator/internal/infrastructure/config"

	"google.golang.org/genai"
)

// Client 透過 genai SDK 呼叫 Gemini
type Client struct {
	genAI *genai.Client
	model string
}

// NewClient 創建 Gemini 客戶端
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Gemini.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.Gemini.BaseURL
	}
	if cfg.Gemini.Timeout > 0 {
		timeout := cfg.Gemini.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	genAI, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{genAI: genAI, model: cfg.Completion.Model}, nil
}

// Generate 生成回應；system 訊息轉為 SystemInstruction
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == provider.RoleSystem {
			gc.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleModel)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	res, err := c.genAI.Models.GenerateContent(ctx, c.model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	text := res.Text()
	if text == "" {
		return nil, provider.ErrEmptyContent
	}

	resp := &provider.Response{Content: text}
	if u := res.UsageMetadata; u != nil {
		resp.Usage = provider.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return resp, nil
}

func (c *Client) Name() string {
	return config.ProviderGemini
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) Close() error {
	return nil
}
