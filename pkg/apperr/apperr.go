package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误类别哨兵。服务层只返回这几类错误的包装，
// 由HTTP层统一映射到状态码，各handler不自行决定状态。
var (
	// ErrNotFound 表示资源不存在，或因可见性规则对调用者隐藏
	ErrNotFound = errors.New("not found")
	// ErrConflict 表示唯一性冲突（重复注册、重复投票、重复加入等）
	ErrConflict = errors.New("conflict")
	// ErrForbidden 表示已认证但权限不足
	ErrForbidden = errors.New("forbidden")
	// ErrValidation 表示请求内容不合法
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized 表示未认证或凭证无效
	ErrUnauthorized = errors.New("unauthorized")
)

// appError 将一条面向调用者的消息与一个类别哨兵绑定在一起。
type appError struct {
	kind error
	msg  string
}

func (e *appError) Error() string { return e.msg }

// Unwrap 让 errors.Is(err, ErrNotFound) 等判断可以工作
func (e *appError) Unwrap() error { return e.kind }

// NotFound 构造一个“资源不存在”类错误
func NotFound(msg string) error { return &appError{kind: ErrNotFound, msg: msg} }

// Conflict 构造一个“唯一性冲突”类错误
func Conflict(msg string) error { return &appError{kind: ErrConflict, msg: msg} }

// Forbidden 构造一个“权限不足”类错误
func Forbidden(msg string) error { return &appError{kind: ErrForbidden, msg: msg} }

// Validation 构造一个“请求不合法”类错误
func Validation(msg string) error { return &appError{kind: ErrValidation, msg: msg} }

// Unauthorized 构造一个“未认证”类错误
func Unauthorized(msg string) error { return &appError{kind: ErrUnauthorized, msg: msg} }

// Status 将错误映射为HTTP状态码。未知错误一律按500处理。
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Abort 以统一的JSON格式向客户端返回错误并终止后续handler。
func Abort(c *gin.Context, err error) {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// 内部错误不向客户端泄露细节
		msg = "服务器内部错误"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
