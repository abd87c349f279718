package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 支援 errors.Is / errors.As 鏈式比對
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WrapError 以預定義錯誤為模板包裝原始錯誤
func WrapError(tpl *CustomError, err error) *CustomError {
	return &CustomError{
		Code:    tpl.Code,
		Message: tpl.Message,
		Status:  tpl.Status,
		Err:     err,
	}
}

// ErrorCode 取出錯誤代碼；非 CustomError 一律視為內部錯誤
func ErrorCode(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternalError
}

// IsErrorCode 檢查錯誤是否帶有指定代碼
func IsErrorCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503

	// 萃取流程錯誤
	ErrCodeInvalidURL            = "INVALID_URL"             // 無法判斷平台的網址
	ErrCodeMetadataUnavailable   = "METADATA_UNAVAILABLE"    // oEmbed 取得中繼資料失敗
	ErrCodeVideoIDUnavailable    = "VIDEO_ID_UNAVAILABLE"    // 無法從中繼資料推出影片 ID
	ErrCodeMissingCredential     = "MISSING_CREDENTIAL"      // 路由到的供應商缺少金鑰
	ErrCodeNoContent             = "NO_CONTENT"              // 爬蟲完成但沒有可用文字
	ErrCodeNormalizationFailed   = "NORMALIZATION_FAILED"    // AI 正規化失敗
	ErrCodeDatastoreError        = "DATASTORE_ERROR"         // 任務儲存失敗
	ErrCodeUpstreamTriggerFailed = "UPSTREAM_TRIGGER_FAILED" // 爬蟲任務無法啟動
	ErrCodeInvalidPayload        = "INVALID_PAYLOAD"         // webhook 載荷結構無效
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "未授權的訪問", http.StatusUnauthorized, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)

	// 萃取流程錯誤
	ErrInvalidURL            = NewError(ErrCodeInvalidURL, "不支援的影片網址", http.StatusBadRequest, nil)
	ErrMetadataUnavailable   = NewError(ErrCodeMetadataUnavailable, "無法取得影片中繼資料", http.StatusBadRequest, nil)
	ErrVideoIDUnavailable    = NewError(ErrCodeVideoIDUnavailable, "無法取得影片識別碼", http.StatusBadRequest, nil)
	ErrMissingCredential     = NewError(ErrCodeMissingCredential, "供應商金鑰未設定", http.StatusInternalServerError, nil)
	ErrNoContent             = NewError(ErrCodeNoContent, "影片沒有可用的文字內容", http.StatusOK, nil)
	ErrNormalizationFailed   = NewError(ErrCodeNormalizationFailed, "食譜正規化失敗", http.StatusInternalServerError, nil)
	ErrDatastore             = NewError(ErrCodeDatastoreError, "任務資料存取失敗", http.StatusInternalServerError, nil)
	ErrUpstreamTriggerFailed = NewError(ErrCodeUpstreamTriggerFailed, "無法啟動外部爬蟲任務", http.StatusInternalServerError, nil)
	ErrInvalidPayload        = NewError(ErrCodeInvalidPayload, "無效的回呼載荷", http.StatusBadRequest, nil)
)
