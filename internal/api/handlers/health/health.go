package health

import (
	"net/http"
	"runtime"
	"time"

	"macro-recipe-generator/internal/core/session"
	"macro-recipe-generator/internal/infrastructure/config"
	"macro-recipe-generator/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// context 注入的鍵
const (
	ConfigKey         = "config"
	SessionManagerKey = "session_manager"
	ModelKey          = "completion_model"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Version    string                 `json:"version"`
	Completion CompletionStatus       `json:"completion"`
	Sessions   session.Stats          `json:"sessions"`
	Runtime    map[string]interface{} `json:"runtime"`
}

// CompletionStatus 模型提供者狀態
type CompletionStatus struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	cfg, ok := c.MustGet(ConfigKey).(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		common.AbortWithError(c, common.ErrInternalError, "configuration not found")
		return
	}
	manager, ok := c.MustGet(SessionManagerKey).(*session.Manager)
	if !ok {
		common.LogError("Invalid session manager type in context")
		common.AbortWithError(c, common.ErrInternalError, "session manager not found")
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   cfg.App.Version,
		Completion: CompletionStatus{
			Provider: cfg.Completion.Provider,
			Model:    c.GetString(ModelKey),
		},
		Sessions: manager.Stats(),
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	})
}

// ReadinessCheck 就緒檢查處理器
func ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
