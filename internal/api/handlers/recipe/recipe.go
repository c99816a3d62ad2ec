package recipe

import (
	"context"
	"errors"
	"math"
	"net/http"

	"macro-recipe-generator/internal/api/middleware"
	recipeService "macro-recipe-generator/internal/core/recipe"
	"macro-recipe-generator/internal/core/session"
	"macro-recipe-generator/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GenerateRequest 表單與 JSON 共用的提交內容；食材是否為空交由服務判斷
type GenerateRequest struct {
	MealType           string  `json:"meal_type" form:"meal_type" binding:"required,oneof=Breakfast Lunch Dinner Snack"`
	Ingredients        string  `json:"ingredients" form:"ingredients"`
	TargetCalories     int     `json:"target_calories" form:"target_calories" binding:"min=0"`
	TargetProteinGrams float64 `json:"target_protein_grams" form:"target_protein_grams" binding:"min=0"`
	ProteinSource      string  `json:"protein_source" form:"protein_source" binding:"required,oneof=Chicken Beef Pork Tofu Beans Fish Eggs"`
	CustomInstructions string  `json:"custom_instructions" form:"custom_instructions"`
}

// toRecipeRequest 轉為領域型別
func (r GenerateRequest) toRecipeRequest() recipeService.RecipeRequest {
	return recipeService.RecipeRequest{
		MealType:           recipeService.MealType(r.MealType),
		Ingredients:        r.Ingredients,
		TargetCalories:     r.TargetCalories,
		TargetProteinGrams: r.TargetProteinGrams,
		ProteinSource:      recipeService.ProteinSource(r.ProteinSource),
		CustomInstructions: r.CustomInstructions,
	}
}

// validate 檢查 binding 標籤無法表達的限制：Inf 與 NaN 會通過 min=0
func (r GenerateRequest) validate() error {
	if math.IsInf(r.TargetProteinGrams, 0) || math.IsNaN(r.TargetProteinGrams) {
		return common.NewValidationError("target_protein_grams must be a finite number")
	}
	return nil
}

// GenerateResponse 生成成功的回應
type GenerateResponse struct {
	Message string                     `json:"message"`
	Recipe  recipeService.RecipeRecord `json:"recipe"`
	History []historyEntryView         `json:"history"`
}

// HistoryResponse 紀錄查詢回應
type HistoryResponse struct {
	SessionID string                       `json:"session_id"`
	Count     int                          `json:"count"`
	Entries   []historyEntryView           `json:"entries"`
	Records   []recipeService.RecipeRecord `json:"records,omitempty"`
}

type historyEntryView struct {
	recipeService.HistoryEntry
	Summary string `json:"summary"`
}

// historyViews 依由新到舊的順序展開側欄資料
func historyViews(store *recipeService.HistoryStore) []historyEntryView {
	views := []historyEntryView{}
	for entry := range store.Recent() {
		views = append(views, historyEntryView{HistoryEntry: entry, Summary: entry.Summary()})
	}
	return views
}

// Generator 食譜生成介面
type Generator interface {
	Generate(ctx context.Context, history *recipeService.HistoryStore, req recipeService.RecipeRequest) (*recipeService.RecipeRecord, error)
}

// Handler 食譜處理程序
type Handler struct {
	generator Generator
	sessions  *session.Manager
}

// NewHandler 創建新的食譜處理程序
func NewHandler(generator Generator, sessions *session.Manager) *Handler {
	return &Handler{
		generator: generator,
		sessions:  sessions,
	}
}

// generate 在工作階段內執行一次生成，同一工作階段不允許並行
func (h *Handler) generate(c *gin.Context, sess *session.Session, req GenerateRequest) (*recipeService.RecipeRecord, *common.CustomError, string) {
	if !sess.TryBegin() {
		return nil, common.ErrGenerationActive, ""
	}
	defer sess.End()

	record, err := h.generator.Generate(c.Request.Context(), sess.History, req.toRecipeRequest())
	if err == nil {
		return record, nil, ""
	}

	var genErr *recipeService.GenerationError
	switch {
	case common.IsValidationError(err):
		return nil, common.ErrInvalidRequest, err.Error()
	case errors.As(err, &genErr):
		common.LogError("Recipe generation failed",
			zap.Error(genErr.Err),
			zap.String("request_id", requestid.Get(c)),
			zap.String("session_id", sess.ID),
		)
		return nil, common.ErrAIServiceError, ""
	default:
		common.LogError("Unexpected generation error",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		return nil, common.ErrInternalError, ""
	}
}

// HandleGenerate POST /api/v1/recipe/generate
func (h *Handler) HandleGenerate(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		common.AbortWithError(c, common.ErrSessionNotFound, "")
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("Invalid request format",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		common.AbortWithError(c, common.ErrInvalidRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		common.AbortWithError(c, common.ErrInvalidRequest, err.Error())
		return
	}

	record, cerr, details := h.generate(c, sess, req)
	if cerr != nil {
		common.AbortWithError(c, cerr, details)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		Message: "Recipe generated!",
		Recipe:  *record,
		History: historyViews(sess.History),
	})
}

// HandlePrompt POST /api/v1/recipe/prompt 只組出 prompt，不呼叫模型
func (h *Handler) HandlePrompt(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, common.ErrInvalidRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		common.AbortWithError(c, common.ErrInvalidRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prompt": recipeService.BuildPrompt(req.toRecipeRequest()),
	})
}

// HandleHistory GET /api/v1/recipe/history，?full=true 時附上完整紀錄
func (h *Handler) HandleHistory(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		common.AbortWithError(c, common.ErrSessionNotFound, "")
		return
	}

	resp := HistoryResponse{
		SessionID: sess.ID,
		Entries:   historyViews(sess.History),
	}
	resp.Count = len(resp.Entries)
	if c.Query("full") == "true" {
		resp.Records = sess.History.Records()
	}

	c.JSON(http.StatusOK, resp)
}

// HandleEndSession DELETE /api/v1/session
func (h *Handler) HandleEndSession(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil || !h.sessions.End(sess.ID) {
		common.AbortWithError(c, common.ErrSessionNotFound, "")
		return
	}
	c.Status(http.StatusNoContent)
}
