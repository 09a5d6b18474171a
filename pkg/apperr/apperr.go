// Package apperr 定义业务错误分类。
// 所有领域错误都携带 Kind，在请求边界统一映射为 HTTP 状态码和业务码。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInvalidInput    Kind = "invalid_input"
	KindAlreadyAtTarget Kind = "already_at_target"
	KindUnauthorized    Kind = "unauthorized"
	KindInternal        Kind = "internal"
)

// Error 结构化业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类别即视为相等，方便 errors.Is(err, apperr.Forbidden(""))
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap 包装底层错误并标注类别
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }
func InvalidInput(msg string) *Error    { return New(KindInvalidInput, msg) }
func AlreadyAtTarget(msg string) *Error { return New(KindAlreadyAtTarget, msg) }
func Unauthorized(msg string) *Error    { return New(KindUnauthorized, msg) }

// KindOf 提取错误类别，非业务错误一律视为 Internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind 判断错误链中是否包含指定类别
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
