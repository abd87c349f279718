package handlers

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler 爬蟲完成回呼處理器
type WebhookHandler struct {
	config  *config.Config
	service *extract.Service
}

// NewWebhookHandler 創建回呼處理器
func NewWebhookHandler(cfg *config.Config, svc *extract.Service) *WebhookHandler {
	return &WebhookHandler{
		config:  cfg,
		service: svc,
	}
}

// HandleScrapeComplete 接收爬蟲完成事件。
// 任務鍵與共享密鑰夾帶在查詢參數上，與啟動爬蟲時註冊的回呼網址對應。
// 回 5xx 會讓上游重送，所以只有暫時性失敗才走到那裡
func (h *WebhookHandler) HandleScrapeComplete(c *gin.Context) {
	rid := requestID(c)

	secret := c.Query("secret")
	want := h.config.Webhook.Secret
	if want == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(want)) != 1 {
		common.LogWarn("回呼密鑰驗證失敗",
			zap.String("ip", c.ClientIP()),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", rid),
		)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": common.ErrUnauthorized.Message,
			"code":  common.ErrCodeUnauthorized,
		})
		return
	}

	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "缺少 key 參數",
			"code":  common.ErrCodeInvalidPayload,
		})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidPayload.Message,
			"code":  common.ErrCodeInvalidPayload,
		})
		return
	}

	jb, err := h.service.Complete(c.Request.Context(), key, payload)
	if err != nil {
		common.LogWarn("回呼處理失敗",
			zap.String("key", key),
			zap.String("code", common.ErrorCode(err)),
			zap.String("request_id", rid),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":    jb.Key,
		"status": jb.Status,
	})
}
