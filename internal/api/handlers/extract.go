package handlers

import (
	"net/http"
	"strings"

	"recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExtractHandler 影片萃取處理器
type ExtractHandler struct {
	service *extract.Service
}

// NewExtractHandler 創建影片萃取處理器
func NewExtractHandler(svc *extract.Service) *ExtractHandler {
	return &ExtractHandler{
		service: svc,
	}
}

// HandleExtract 提交影片網址進行萃取。
// 已完成的任務回 200，排入慢路徑的任務回 202，force 會重跑既有任務
func (h *ExtractHandler) HandleExtract(c *gin.Context) {
	var req struct {
		URL   string `json:"url" binding:"required"`
		Force bool   `json:"force"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Message,
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	jb, err := h.service.Extract(c.Request.Context(), req.URL, req.Force)
	if err != nil {
		common.LogWarn("萃取請求失敗",
			zap.String("url", req.URL),
			zap.String("code", common.ErrorCode(err)),
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(statusCode(jb), newJobView(jb))
}

// HandleResult 查詢任務結果，查無任務時回 404
func (h *ExtractHandler) HandleResult(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "缺少 key 參數",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	jb, err := h.service.Result(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	if jb == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": common.ErrNotFound.Message,
			"code":  common.ErrCodeNotFound,
		})
		return
	}

	c.JSON(statusCode(jb), newJobView(jb))
}
