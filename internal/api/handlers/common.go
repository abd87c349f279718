package handlers

import (
	"errors"
	"net/http"
	"time"

	"recipe-extractor/internal/core/job"
	"recipe-extractor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// jobView 任務的對外投影。caption、逐字稿與爬蟲識別碼屬於工作素材，
// 不隨 API 回應外流
type jobView struct {
	Key       string         `json:"key"`
	Status    job.Status     `json:"status"`
	Value     *common.Recipe `json:"value,omitempty"`
	Error     *job.Detail    `json:"error,omitempty"`
	Meta      jobMetaView    `json:"meta"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type jobMetaView struct {
	SourceURL   string          `json:"source_url,omitempty"`
	Platform    common.Platform `json:"platform,omitempty"`
	Provider    string          `json:"provider,omitempty"`
	Model       string          `json:"model,omitempty"`
	FetchMS     int64           `json:"fetch_ms,omitempty"`
	NormalizeMS int64           `json:"normalize_ms,omitempty"`
	Attempts    int             `json:"attempts,omitempty"`
}

func newJobView(jb *job.Job) jobView {
	return jobView{
		Key:    jb.Key,
		Status: jb.Status,
		Value:  jb.Value,
		Error:  jb.Error,
		Meta: jobMetaView{
			SourceURL:   jb.Meta.SourceURL,
			Platform:    jb.Meta.Platform,
			Provider:    jb.Meta.Provider,
			Model:       jb.Meta.Model,
			FetchMS:     jb.Meta.FetchMS,
			NormalizeMS: jb.Meta.NormalizeMS,
			Attempts:    jb.Meta.Attempts,
		},
		UpdatedAt: jb.UpdatedAt,
	}
}

// statusCode 任務狀態對應的 HTTP 狀態碼。
// FAILED 也回 200，錯誤明細已寫進任務本身
func statusCode(jb *job.Job) int {
	if jb.Status == job.StatusPending {
		return http.StatusAccepted
	}
	return http.StatusOK
}

// requestID 取得請求識別碼，沒有就補一個，讓日誌與回應對得上。
// 回呼來自外部服務，不會帶 X-Request-ID
func requestID(c *gin.Context) string {
	rid := c.GetHeader("X-Request-ID")
	if rid == "" {
		rid = uuid.NewString()
		c.Header("X-Request-ID", rid)
	}
	return rid
}

// respondError 依錯誤型別決定狀態碼，未分類錯誤一律 500
func respondError(c *gin.Context, err error) {
	var ce *common.CustomError
	if errors.As(err, &ce) {
		c.JSON(ce.Status, gin.H{
			"error": ce.Message,
			"code":  ce.Code,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": common.ErrInternalError.Message,
		"code":  common.ErrCodeInternalError,
	})
}
