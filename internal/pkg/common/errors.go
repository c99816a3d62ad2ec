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

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Response 轉為 API 錯誤響應
func (e *CustomError) Response(details string) ErrorResponse {
	return ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
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

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤（包含被包裝的情況）
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"   // 400
	ErrCodeNotFound         = "NOT_FOUND"         // 404
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS" // 429
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE" // 413
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND" // 404
	ErrCodeGenerationActive = "GENERATION_ACTIVE" // 409

	// 服務器錯誤 (5xx)
	ErrCodeInternalError = "INTERNAL_ERROR"   // 500
	ErrCodeAIService     = "AI_SERVICE_ERROR" // 503
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest   = NewError(ErrCodeInvalidRequest, "Invalid request", http.StatusBadRequest, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "Resource not found", http.StatusNotFound, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "Too many requests", http.StatusTooManyRequests, nil)
	ErrRequestTooLarge  = NewError(ErrCodeRequestTooLarge, "Request body too large", http.StatusRequestEntityTooLarge, nil)
	ErrSessionNotFound  = NewError(ErrCodeSessionNotFound, "Session not found", http.StatusNotFound, nil)
	ErrGenerationActive = NewError(ErrCodeGenerationActive, "A recipe is already being generated for this session", http.StatusConflict, nil)

	// 服務器錯誤
	ErrInternalError = NewError(ErrCodeInternalError, "Internal server error", http.StatusInternalServerError, nil)

	// 業務錯誤
	ErrAIServiceError = NewError(ErrCodeAIService, "Recipe generation failed, please try again", http.StatusServiceUnavailable, nil)
)
