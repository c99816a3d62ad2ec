package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"macro-recipe-generator/internal/core/ai/gemini"
	"macro-recipe-generator/internal/core/ai/openai"
	"macro-recipe-generator/internal/core/ai/openrouter"
	"macro-recipe-generator/internal/core/ai/provider"
	"macro-recipe-generator/internal/infrastructure/config"
	"macro-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// Service AI 服務，包裝單一提供者
type Service struct {
	provider provider.Provider
}

// NewService 依設定創建 AI 服務
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	p, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	common.LogInfo("Completion provider initialized",
		zap.String("provider", p.Name()),
		zap.String("model", p.GetModel()),
		zap.String("api_key", cfg.Selected().APIKey),
	)
	return NewWithProvider(p), nil
}

// NewWithProvider 以既有提供者創建 AI 服務
func NewWithProvider(p provider.Provider) *Service {
	return &Service{provider: p}
}

func newProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Completion.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(cfg), nil
	case config.ProviderOpenRouter:
		return openrouter.NewClient(cfg), nil
	case config.ProviderGemini:
		return gemini.NewClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Completion.Provider)
	}
}

// Complete 發送單次請求並回傳去除前後空白的內容
func (s *Service) Complete(ctx context.Context, req *provider.Request) (string, error) {
	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	if err == nil && (resp == nil || strings.TrimSpace(resp.Content) == "") {
		err = provider.ErrEmptyContent
	}
	common.LogCompletion(s.provider.Name(), s.provider.GetModel(), time.Since(start), err)
	if err != nil {
		return "", err
	}

	common.LogDebug("Completion usage",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return strings.TrimSpace(resp.Content), nil
}

// Model 目前使用的模型
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// ProviderName 目前使用的提供者
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Close 關閉提供者
func (s *Service) Close() error {
	return s.provider.Close()
}
