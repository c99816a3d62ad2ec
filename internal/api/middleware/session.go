package middleware

import (
	"net/http"

	"macro-recipe-generator/internal/core/session"

	"github.com/gin-gonic/gin"
)

const (
	// SessionKey gin context 中的 *session.Session
	SessionKey = "session"
	// SessionIDKey gin context 中的工作階段 ID
	SessionIDKey = "session_id"
	// SessionHeader 非瀏覽器客戶端使用的標頭
	SessionHeader = "X-Session-ID"
)

// Session 依 cookie 或 X-Session-ID 取得工作階段，不存在或已過期時建立新的
func Session(manager *session.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id, _ = c.Cookie(cookieName)
		}

		sess, created := manager.GetOrCreate(id)
		if created || id != sess.ID {
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     cookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Header(SessionHeader, sess.ID)

		c.Set(SessionKey, sess)
		c.Set(SessionIDKey, sess.ID)
		c.Next()
	}
}

// CurrentSession 取得目前請求的工作階段
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}
