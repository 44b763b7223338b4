package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secrethobby/backend/internal/domain"
)

// 错误类型映射表（业务错误类型 -> HTTP 状态码与中文消息）
var errorStatus = map[domain.ErrorKind]struct {
	status int
	msg    string
}{
	domain.KindAliasTaken:           {http.StatusConflict, "该别名已被占用"},
	domain.KindAliasNotFound:        {http.StatusNotFound, "别名不存在"},
	domain.KindAuthenticationFailed: {http.StatusUnauthorized, "认证失败，请重新登录"},
	domain.KindValidation:           {http.StatusBadRequest, "请求参数无效"},
	domain.KindUnauthorized:         {http.StatusForbidden, MsgPermissionDenied},
	domain.KindInvalidTransition:    {http.StatusConflict, "请求状态已变更，无法执行该操作"},
	domain.KindStoreUnavailable:     {http.StatusServiceUnavailable, "存储暂不可用，请稍后重试"},
	domain.KindNotFound:             {http.StatusNotFound, "资源不存在"},
}

// StatusOf 返回错误对应的 HTTP 状态码
func StatusOf(err error) int {
	if mapped, ok := errorStatus[domain.KindOf(err)]; ok {
		return mapped.status
	}
	return http.StatusInternalServerError
}

// GetErrorMessage 获取错误的中文消息。校验错误直接返回具体原因。
func GetErrorMessage(err error) string {
	kind := domain.KindOf(err)
	if kind == domain.KindValidation {
		var de *domain.Error
		if errors.As(err, &de) && de.Msg != "" {
			return de.Msg
		}
	}
	if mapped, ok := errorStatus[kind]; ok {
		return mapped.msg
	}
	return MsgInternalError
}

// respondError 按错误类型写出统一响应，未打标签的错误以 internal 类型返回 500
func respondError(c *gin.Context, log *zap.Logger, op string, err error) {
	status := StatusOf(err)
	kind := domain.KindOf(err)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", zap.Error(err), zap.String("kind", string(kind)))
	}
	Fail(c, status, kind, GetErrorMessage(err))
}

// 通用错误消息
const (
	MsgInvalidRequest   = "请求参数格式错误"
	MsgAuthRequired     = "需要登录认证"
	MsgPermissionDenied = "权限不足"
	MsgInternalError    = "服务器内部错误，请稍后重试"
)
