package recipe

import (
	"context"
	"strings"
	"time"

	"macro-recipe-generator/internal/core/ai/provider"
	"macro-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// 固定的取樣參數
const (
	Temperature = 0.7
	MaxTokens   = 600
)

// ErrNoIngredients 食材為空時回傳，不會送出請求
var ErrNoIngredients = common.NewValidationError("please enter at least one ingredient")

// GenerationError 模型呼叫失敗，不區分原因
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "recipe generation failed"
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Completer 模型呼叫介面，回傳已去除前後空白的文字
type Completer interface {
	Complete(ctx context.Context, req *provider.Request) (string, error)
}

// RecipeService 食譜生成服務
type RecipeService struct {
	completer Completer
	now       func() time.Time
}

// NewRecipeService 創建新的食譜生成服務
func NewRecipeService(completer Completer) *RecipeService {
	return &RecipeService{
		completer: completer,
		now:       time.Now,
	}
}

// Generate 驗證輸入、組成 prompt、呼叫模型，成功時將紀錄追加到 history。
// 失敗時 history 不變，也不重試。
func (s *RecipeService) Generate(ctx context.Context, history *HistoryStore, req RecipeRequest) (*RecipeRecord, error) {
	if strings.TrimSpace(req.Ingredients) == "" {
		return nil, ErrNoIngredients
	}

	prompt := BuildPrompt(req)
	common.LogDebug("Recipe prompt built",
		zap.String("meal_type", string(req.MealType)),
		zap.Int("prompt_length", len(prompt)),
	)

	text, err := s.completer.Complete(ctx, &provider.Request{
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: prompt}},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &GenerationError{Err: provider.ErrEmptyContent}
	}

	record := RecipeRecord{
		Timestamp:     s.now(),
		RecipeRequest: req,
		RecipeText:    text,
	}
	history.Append(record)

	common.LogInfo("Recipe generated",
		zap.String("meal_type", string(req.MealType)),
		zap.String("protein_source", string(req.ProteinSource)),
		zap.Int("history_size", history.Len()),
	)
	return &record, nil
}
