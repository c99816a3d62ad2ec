package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// AbortWithError 寫入錯誤響應並中止後續處理
func AbortWithError(c *gin.Context, e *CustomError, details string) {
	c.AbortWithStatusJSON(e.Status, e.Response(details))
}
