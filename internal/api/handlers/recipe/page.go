package recipe

import (
	"embed"
	"html/template"
	"net/http"

	"macro-recipe-generator/internal/api/middleware"
	recipeService "macro-recipe-generator/internal/core/recipe"
	"macro-recipe-generator/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PageTemplate 表單頁面樣板名稱
const PageTemplate = "index.html.tmpl"

// Templates 解析內嵌的 HTML 樣板，供 gin 的 SetHTMLTemplate 使用
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
}

// pageData 頁面資料
type pageData struct {
	MealTypes      []recipeService.MealType
	ProteinSources []recipeService.ProteinSource
	Form           GenerateRequest
	Error          string
	Success        string
	Recipe         *recipeService.RecipeRecord
	History        []historyEntryView
}

func defaultForm() GenerateRequest {
	return GenerateRequest{
		MealType:      string(recipeService.MealBreakfast),
		ProteinSource: string(recipeService.ProteinChicken),
	}
}

func (h *Handler) renderPage(c *gin.Context, status int, data pageData) {
	data.MealTypes = recipeService.MealTypes
	data.ProteinSources = recipeService.ProteinSources
	if sess := middleware.CurrentSession(c); sess != nil {
		data.History = historyViews(sess.History)
	}
	c.HTML(status, PageTemplate, data)
}

// HandlePage GET /
func (h *Handler) HandlePage(c *gin.Context) {
	h.renderPage(c, http.StatusOK, pageData{Form: defaultForm()})
}

// HandleFormSubmit POST /generate
func (h *Handler) HandleFormSubmit(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		h.renderPage(c, http.StatusNotFound, pageData{Form: defaultForm(), Error: common.ErrSessionNotFound.Message})
		return
	}

	form := defaultForm()
	if err := c.ShouldBind(&form); err != nil {
		common.LogWarn("Invalid form submission", zap.Error(err))
		h.renderPage(c, http.StatusBadRequest, pageData{Form: form, Error: "Please check the form values and try again."})
		return
	}
	if err := form.validate(); err != nil {
		h.renderPage(c, http.StatusBadRequest, pageData{Form: form, Error: err.Error()})
		return
	}

	record, cerr, details := h.generate(c, sess, form)
	if cerr != nil {
		msg := cerr.Message
		if details != "" {
			msg = details
		}
		h.renderPage(c, cerr.Status, pageData{Form: form, Error: msg})
		return
	}

	h.renderPage(c, http.StatusOK, pageData{
		Form:    form,
		Success: "Recipe generated!",
		Recipe:  record,
	})
}
