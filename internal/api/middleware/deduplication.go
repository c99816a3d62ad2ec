package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"macro-recipe-generator/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// dedupCache 記錄最近的提交指紋
type dedupCache struct {
	mu        sync.Mutex
	requests  map[string]time.Time
	window    time.Duration
	lastPrune time.Time
}

// seen 回傳指紋是否在時間窗內出現過，並記錄本次提交
func (d *dedupCache) seen(fingerprint string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	// 每隔 10 個時間窗清理一次舊指紋
	if now.Sub(d.lastPrune) > 10*d.window {
		for k, t := range d.requests {
			if now.Sub(t) > d.window {
				delete(d.requests, k)
			}
		}
		d.lastPrune = now
	}

	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now
	return false
}

// Deduplication 防止同一工作階段在時間窗內重複送出相同內容
func Deduplication(window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = time.Second
	}
	cache := &dedupCache{
		requests: make(map[string]time.Time),
		window:   window,
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.LogWarn("Request body too large",
				zap.Int64("max_size", tooLarge.Limit),
				zap.String("path", c.Request.URL.Path),
			)
			common.AbortWithError(c, common.ErrRequestTooLarge, "")
			return
		}
		if err != nil {
			common.LogWarn("Failed to read request body", zap.Error(err))
			common.AbortWithError(c, common.ErrInvalidRequest, "unreadable request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := sha256.Sum256(body)
		fingerprint := c.GetString(SessionIDKey) + ":" + c.Request.URL.Path + ":" + hex.EncodeToString(hash[:])

		if cache.seen(fingerprint, time.Now()) {
			common.LogInfo("Duplicate submission rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("session_id", c.GetString(SessionIDKey)),
			)
			common.AbortWithError(c, common.ErrTooManyRequests, "duplicate submission")
			return
		}

		c.Next()
	}
}
