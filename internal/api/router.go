package api

import (
	"fmt"
	"time"

	"macro-recipe-generator/internal/api/handlers/health"
	recipeHandler "macro-recipe-generator/internal/api/handlers/recipe"
	"macro-recipe-generator/internal/api/middleware"
	recipeService "macro-recipe-generator/internal/core/recipe"
	"macro-recipe-generator/internal/core/session"
	"macro-recipe-generator/internal/infrastructure/config"
	"macro-recipe-generator/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, sessions *session.Manager, completer recipeService.Completer, model string) (*gin.Engine, error) {
	if cfg == nil || sessions == nil || completer == nil {
		return nil, fmt.Errorf("router dependencies must not be nil")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.SetHTMLTemplate(recipeHandler.Templates())

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID", middleware.SessionHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", middleware.SessionHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 注入設定與服務
	router.Use(func(c *gin.Context) {
		c.Set(health.ConfigKey, cfg)
		c.Set(health.SessionManagerKey, sessions)
		c.Set(health.ModelKey, model)
		c.Next()
	})

	recipeSvc := recipeService.NewRecipeService(completer)
	handler := recipeHandler.NewHandler(recipeSvc, sessions)

	withSession := middleware.Session(sessions, cfg.Session.CookieName)
	dedup := middleware.Deduplication(cfg.DedupWindow)

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// 表單頁面
	page := router.Group("/", withSession)
	{
		page.GET("", handler.HandlePage)
		page.POST("generate", dedup, handler.HandleFormSubmit)
	}

	// API 路由組；prompt 預覽不需要工作階段
	api := router.Group("/api/v1")
	{
		api.POST("/recipe/prompt", handler.HandlePrompt)

		recipeGroup := api.Group("/recipe", withSession)
		{
			recipeGroup.POST("/generate", dedup, handler.HandleGenerate)
			recipeGroup.GET("/history", handler.HandleHistory)
		}
		api.DELETE("/session", withSession, handler.HandleEndSession)
	}

	router.NoRoute(func(c *gin.Context) {
		common.AbortWithError(c, common.ErrNotFound, c.Request.URL.Path)
	})

	common.LogInfo("Router setup completed successfully",
		zap.String("provider", cfg.Completion.Provider),
		zap.String("model", model),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}
