package errors

import (
	stderrors "errors"
	"fmt"
)

// 错误码
const (
	CodeSuccess            = 200
	CodePartialSuccess     = 206 // 部分成功
	CodeBadRequest         = 400
	CodeNotFound           = 404
	CodeConflict           = 409
	CodeInternalError      = 500
	CodeDatabaseError      = 501 // 存储不可用，调用方可重试
	CodeUpstreamError      = 502 // GitHub 等上游接口失败
	CodeValidationError    = 503
	CodeServiceUnavailable = 504
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is(err, ErrDatabaseError)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InvalidParams 参数错误，带具体说明
func InvalidParams(format string, args ...interface{}) *AppError {
	return New(CodeBadRequest, fmt.Sprintf(format, args...))
}

// CodeOf 取出错误码，非 AppError 视为内部错误
func CodeOf(err error) int {
	if err == nil {
		return CodeSuccess
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// IsRetryable 存储类错误允许调用方重试
func IsRetryable(err error) bool {
	code := CodeOf(err)
	return code == CodeDatabaseError || code == CodeServiceUnavailable
}

// 预定义错误
var (
	ErrBadRequest      = New(CodeBadRequest, "请求参数错误")
	ErrNotFound        = New(CodeNotFound, "资源不存在")
	ErrConflict        = New(CodeConflict, "资源冲突")
	ErrInternalError   = New(CodeInternalError, "内部服务器错误")
	ErrDatabaseError   = New(CodeDatabaseError, "数据库错误")
	ErrUpstreamError   = New(CodeUpstreamError, "上游接口调用失败")
	ErrValidationError = New(CodeValidationError, "数据验证失败")

	// 具体业务错误
	ErrInvalidParams     = New(CodeBadRequest, "请求参数错误")
	ErrRecordNotFound    = New(CodeNotFound, "记录不存在")
	ErrUnsupportedFormat = New(CodeBadRequest, "不支持的文件格式")
)
