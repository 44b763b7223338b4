package domain

import (
	"errors"
	"fmt"
)

// ErrorKind 业务失败类型，调用方据此分支处理
type ErrorKind string

const (
	KindAliasTaken           ErrorKind = "alias_taken"
	KindAliasNotFound        ErrorKind = "alias_not_found"
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindValidation           ErrorKind = "validation_error"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindInvalidTransition    ErrorKind = "invalid_transition"
	KindStoreUnavailable     ErrorKind = "store_unavailable"
	KindNotFound             ErrorKind = "not_found"
	KindInternal             ErrorKind = "internal"
)

// Error 带类型标签的业务错误
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类型即视为匹配，errors.Is(err, ErrAliasTaken) 不关心具体消息
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// 各失败类型的哨兵错误，用于 errors.Is 比较
var (
	ErrAliasTaken           = &Error{Kind: KindAliasTaken, Msg: "alias already taken"}
	ErrAliasNotFound        = &Error{Kind: KindAliasNotFound, Msg: "alias not found"}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed, Msg: "authentication failed"}
	ErrValidation           = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Msg: "not allowed"}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition, Msg: "invalid status transition"}
	ErrStoreUnavailable     = &Error{Kind: KindStoreUnavailable, Msg: "store unavailable"}
	ErrNotFound             = &Error{Kind: KindNotFound, Msg: "not found"}
)

// NewError 创建业务错误
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validationf 创建校验错误
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误的业务类型，未打标签的错误视为 KindInternal
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否属于某一业务类型
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable 只有存储不可用允许调用方重试
func Retryable(err error) bool {
	return IsKind(err, KindStoreUnavailable)
}
