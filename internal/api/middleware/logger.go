package middleware

import (
	"net/http"
	"net/url"
	"time"

	"recipe-extractor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// probePaths 探針端點由編排器高頻輪詢，正常回應降到 debug 以免淹沒日誌
var probePaths = map[string]bool{
	"/health": true,
	"/ready":  true,
	"/live":   true,
}

// sanitizedQuery 回傳可入日誌的查詢字串。回呼密鑰夾帶在查詢參數上，
// 一律遮掉
func sanitizedQuery(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	q := u.Query()
	if q.Has("secret") {
		q.Set("secret", "****")
	}
	return q.Encode()
}

// Logger 請求日誌中間件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
			// 請求 ID 在 c.Next() 之後才讀，缺少時由中間件補上的那個才撈得到
			zap.String("request_id", c.GetHeader("X-Request-ID")),
		}
		if q := sanitizedQuery(c.Request.URL); q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			common.LogError("伺服器錯誤", fields...)
		case status >= 400:
			common.LogWarn("用戶端錯誤", fields...)
		case probePaths[path]:
			common.LogDebug("探針請求", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery 恢復中間件，攔下 panic 並回統一的錯誤格式
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("request_id", c.GetHeader("X-Request-ID")),
					zap.Stack("stack"),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": common.ErrInternalError.Message,
					"code":  common.ErrCodeInternalError,
				})
			}
		}()

		c.Next()
	}
}
