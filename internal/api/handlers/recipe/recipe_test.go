package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"macro-recipe-generator/internal/api/middleware"
	"macro-recipe-generator/internal/core/ai/provider"
	recipeService "macro-recipe-generator/internal/core/recipe"
	"macro-recipe-generator/internal/core/session"
	"macro-recipe-generator/internal/infrastructure/config"
	"macro-recipe-generator/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
	block chan struct{}
	start chan struct{}
}

func (s *stubCompleter) Complete(ctx context.Context, req *provider.Request) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.start != nil {
		s.start <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	return s.text, s.err
}

func newTestRouter(t *testing.T, completer recipeService.Completer) (*gin.Engine, *session.Manager) {
	return newLimitedTestRouter(t, completer, 10)
}

func newLimitedTestRouter(t *testing.T, completer recipeService.Completer, maxSessions int) (*gin.Engine, *session.Manager) {
	gin.SetMode(gin.TestMode)
	manager := session.NewManager(config.SessionConfig{
		IdleTimeout:     time.Hour,
		CleanupInterval: time.Minute,
		MaxSessions:     maxSessions,
	})
	t.Cleanup(func() { _ = manager.Close() })

	h := NewHandler(recipeService.NewRecipeService(completer), manager)
	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.Use(middleware.Session(manager, "session_id"))
	r.GET("/", h.HandlePage)
	r.POST("/generate", h.HandleFormSubmit)
	r.POST("/api/v1/recipe/generate", h.HandleGenerate)
	r.POST("/api/v1/recipe/prompt", h.HandlePrompt)
	r.GET("/api/v1/recipe/history", h.HandleHistory)
	r.DELETE("/api/v1/session", h.HandleEndSession)
	return r, manager
}

func jsonRequest(t *testing.T, method, path, sessionID string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	return req
}

func validBody() map[string]any {
	return map[string]any{
		"meal_type":            "Breakfast",
		"ingredients":          "eggs, spinach",
		"target_calories":      400,
		"target_protein_grams": 30,
		"protein_source":       "Eggs",
	}
}

func TestHandleGenerateSuccess(t *testing.T) {
	r, _ := newTestRouter(t, &stubCompleter{text: "{\"meal\":\"Breakfast\"}"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/generate", "", validBody()))
	require.Equal(t, http.StatusOK, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Recipe generated!", resp.Message)
	assert.Equal(t, "{\"meal\":\"Breakfast\"}", resp.Recipe.RecipeText)
	assert.Equal(t, recipeService.MealBreakfast, resp.Recipe.MealType)
	require.Len(t, resp.History, 1)
	assert.Equal(t, 1, resp.History[0].Position)
	assert.NotEmpty(t, w.Header().Get(middleware.SessionHeader))
}

func TestHandleGenerateEmptyIngredients(t *testing.T) {
	completer := &stubCompleter{text: "recipe"}
	r, _ := newTestRouter(t, completer)

	body := validBody()
	body["ingredients"] = "   "
	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/generate", "", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.ErrCodeInvalidRequest, resp.Code)
	assert.Equal(t, "please enter at least one ingredient", resp.Details)
	assert.Equal(t, 0, completer.calls)
}

func TestHandleGenerateRejectsUnknownChoices(t *testing.T) {
	r, _ := newTestRouter(t, &stubCompleter{text: "recipe"})

	for field, value := range map[string]any{
		"meal_type":       "Brunch",
		"protein_source":  "Lamb",
		"target_calories": -5,
	} {
		body := validBody()
		body[field] = value
		w := httptest.NewRecorder()
		r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/generate", "", body))
		assert.Equal(t, http.StatusBadRequest, w.Code, field)
	}
}

func TestHandleGenerateCompletionFailure(t *testing.T) {
	r, _ := newTestRouter(t, &stubCompleter{err: errors.New("upstream timeout")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/generate", "", validBody()))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeAIService)
	assert.NotContains(t, w.Body.String(), "upstream timeout")

	sessionID := w.Header().Get(middleware.SessionHeader)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodGet, "/api/v1/recipe/history", sessionID, nil))
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestHandleGenerateConcurrentInSameSession(t *testing.T) {
	completer := &stubCompleter{
		text:  "recipe",
		block: make(chan struct{}),
		start: make(chan struct{}, 1),
	}
	r, manager := newTestRouter(t, completer)
	sess := manager.Create()

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/generate", sess.ID, validBody()))
		done <- w.Code
	}()
	<-completer.start

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/generate", sess.ID, validBody()))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(completer.block)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 1, sess.History.Len())
}

func TestGenerateKeepsHistoryWhenSessionsAreFull(t *testing.T) {
	completer := &stubCompleter{
		text:  "recipe",
		block: make(chan struct{}),
		start: make(chan struct{}, 1),
	}
	r, manager := newLimitedTestRouter(t, completer, 1)
	sess := manager.Create()

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/generate", sess.ID, validBody()))
		done <- w.Code
	}()
	<-completer.start

	// 沒有 cookie 的請求建立新工作階段，不得淘汰生成中的工作階段
	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodGet, "/api/v1/recipe/history", "", nil))
	require.Equal(t, http.StatusOK, w.Code)

	close(completer.block)
	require.Equal(t, http.StatusOK, <-done)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodGet, "/api/v1/recipe/history", sess.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sess.ID, resp.SessionID)
	assert.Equal(t, 1, resp.Count)
}

func TestHandleHistoryNewestFirst(t *testing.T) {
	r, _ := newTestRouter(t, &stubCompleter{text: "recipe"})

	var sessionID string
	for _, meal := range []string{"Breakfast", "Lunch", "Dinner"} {
		body := validBody()
		body["meal_type"] = meal
		w := httptest.NewRecorder()
		r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/generate", sessionID, body))
		require.Equal(t, http.StatusOK, w.Code)
		sessionID = w.Header().Get(middleware.SessionHeader)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodGet, "/api/v1/recipe/history?full=true", sessionID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sessionID, resp.SessionID)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, recipeService.MealDinner, resp.Entries[0].MealType)
	assert.True(t, strings.HasPrefix(resp.Entries[0].Summary, "1. Dinner at "))
	require.Len(t, resp.Records, 3)
	assert.Equal(t, recipeService.MealBreakfast, resp.Records[0].MealType)
}

func TestHandleEndSession(t *testing.T) {
	r, manager := newTestRouter(t, &stubCompleter{text: "recipe"})
	sess := manager.Create()
	sess.History.Append(recipeService.RecipeRecord{RecipeText: "x"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodDelete, "/api/v1/session", sess.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, ok := manager.Get(sess.ID)
	assert.False(t, ok)
}

func TestHandlePrompt(t *testing.T) {
	completer := &stubCompleter{text: "recipe"}
	r, _ := newTestRouter(t, completer)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/v1/recipe/prompt", "", validBody()))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["prompt"], "30.0 g protein")
	assert.Equal(t, 0, completer.calls)
}

func TestHandlePageRendersForm(t *testing.T) {
	r, _ := newTestRouter(t, &stubCompleter{text: "recipe"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "AI Recipe Generator &amp; Tracker")
	assert.Contains(t, body, `<option value="Breakfast" selected>`)
	assert.Contains(t, body, `value="Chicken" checked`)
	assert.Contains(t, body, "No recipes yet.")
}

func TestHandleFormSubmit(t *testing.T) {
	r, _ := newTestRouter(t, &stubCompleter{text: "Scrambled <eggs>"})

	form := url.Values{
		"meal_type":            {"Snack"},
		"ingredients":          {"eggs"},
		"target_calories":      {"250"},
		"target_protein_grams": {"20"},
		"protein_source":       {"Eggs"},
	}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Recipe generated!")
	assert.Contains(t, body, "Your Snack Recipe")
	assert.Contains(t, body, "Scrambled &lt;eggs&gt;")
	assert.NotContains(t, body, "No recipes yet.")
}

func TestHandleFormSubmitEmptyIngredients(t *testing.T) {
	r, _ := newTestRouter(t, &stubCompleter{text: "recipe"})

	form := url.Values{
		"meal_type":      {"Lunch"},
		"ingredients":    {""},
		"protein_source": {"Beans"},
	}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "please enter at least one ingredient")
	assert.Contains(t, w.Body.String(), "No recipes yet.")
}

func TestHandleFormSubmitRejectsNonFiniteProtein(t *testing.T) {
	for _, value := range []string{"Inf", "+Inf", "NaN"} {
		completer := &stubCompleter{text: "recipe"}
		r, _ := newTestRouter(t, completer)

		form := url.Values{
			"meal_type":            {"Dinner"},
			"ingredients":          {"rice"},
			"target_protein_grams": {value},
			"protein_source":       {"Fish"},
		}
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, value)
		assert.NotContains(t, w.Body.String(), "Inf.0 g protein", value)
		assert.Equal(t, 0, completer.calls, value)
	}
}

func TestGenerateRequestValidate(t *testing.T) {
	req := GenerateRequest{TargetProteinGrams: 30}
	assert.NoError(t, req.validate())

	req.TargetProteinGrams = math.Inf(1)
	assert.True(t, common.IsValidationError(req.validate()))

	req.TargetProteinGrams = math.NaN()
	assert.True(t, common.IsValidationError(req.validate()))
}
