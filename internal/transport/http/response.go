package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secrethobby/backend/internal/domain"
)

// Response 统一响应结构
type Response struct {
	Code int         `json:"code"`           // 业务状态码
	Msg  string      `json:"msg"`            // 中文提示信息
	Kind string      `json:"kind,omitempty"` // 失败类型，同一状态码下区分具体原因
	Data interface{} `json:"data,omitempty"` // 数据载荷
}

// 业务状态码定义
const (
	// 成功状态码 2xx
	CodeSuccess = 200 // 成功
	CodeCreated = 201 // 创建成功

	// 客户端错误 4xx
	CodeBadRequest   = 400 // 请求参数错误
	CodeUnauthorized = 401 // 未认证
	CodeForbidden    = 403 // 无权限
	CodeNotFound     = 404 // 资源不存在
	CodeConflict     = 409 // 资源冲突

	// 服务器错误 5xx
	CodeInternalError      = 500 // 服务器内部错误
	CodeServiceUnavailable = 503 // 存储暂不可用，可重试
)

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  "成功",
		Data: data,
	})
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	})
}

// Created 创建成功响应（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code: CodeCreated,
		Msg:  "创建成功",
		Data: data,
	})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, domain.KindValidation, msg)
}

// Unauthorized 未认证错误（401）
func Unauthorized(c *gin.Context, msg string) {
	Fail(c, http.StatusUnauthorized, domain.KindAuthenticationFailed, msg)
}

// NotFound 资源不存在错误（404）
func NotFound(c *gin.Context, msg string) {
	Fail(c, http.StatusNotFound, domain.KindNotFound, msg)
}

// Fail 失败响应，code 与 HTTP 状态码一致。
// 503 时附带 Retry-After，客户端可稍后重试。
func Fail(c *gin.Context, httpCode int, kind domain.ErrorKind, msg string) {
	if httpCode == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.JSON(httpCode, Response{
		Code: httpCode,
		Msg:  msg,
		Kind: string(kind),
	})
}
