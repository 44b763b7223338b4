package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/logger"
)

const (
	// SessionCookie 会话令牌 cookie 名
	SessionCookie = "session_token"

	sessionKey = "session"
)

// Authenticator 根据令牌恢复会话
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

// SessionAuth 会话认证中间件
type SessionAuth struct {
	auth Authenticator
	log  *zap.Logger
}

// NewSessionAuth 创建会话认证中间件
func NewSessionAuth(auth Authenticator, log *zap.Logger) *SessionAuth {
	return &SessionAuth{
		auth: auth,
		log:  logger.OrNop(log),
	}
}

// RequireAuth 要求有效会话
func (sa *SessionAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": http.StatusUnauthorized,
				"msg":  "需要登录认证",
				"kind": domain.KindAuthenticationFailed,
			})
			return
		}

		session, err := sa.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if domain.IsKind(err, domain.KindStoreUnavailable) {
				sa.log.Error("session lookup failed", zap.Error(err))
				c.Header("Retry-After", "1")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"code": http.StatusServiceUnavailable,
					"msg":  "存储暂不可用，请稍后重试",
					"kind": domain.KindStoreUnavailable,
				})
				return
			}
			sa.log.Warn("invalid session token",
				zap.String("error", err.Error()),
				zap.String("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": http.StatusUnauthorized,
				"msg":  "会话无效或已过期，请重新登录",
				"kind": domain.KindAuthenticationFailed,
			})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// OptionalAuth 可选认证，令牌无效时按匿名处理
func (sa *SessionAuth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		if session, err := sa.auth.Authenticate(c.Request.Context(), token); err == nil {
			c.Set(sessionKey, session)
		}
		c.Next()
	}
}

// CurrentSession 返回认证中间件写入的会话
func CurrentSession(c *gin.Context) (*domain.Session, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*domain.Session)
	return session, ok && session != nil
}

// extractToken 依次从 Authorization header 与 cookie 提取令牌
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	token, err := c.Cookie(SessionCookie)
	if err == nil && token != "" {
		return token
	}
	return ""
}
