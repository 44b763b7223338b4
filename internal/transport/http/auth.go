package httptransport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secrethobby/backend/internal/auth"
	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/middleware"
)

// AuthHandler 处理别名注册、登录与登出
type AuthHandler struct {
	binder       *auth.Binder // 身份绑定器
	secureCookie bool         // 会话 cookie 是否只走 HTTPS
	log          *zap.Logger  // 结构化日志记录器
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(binder *auth.Binder, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		binder:       binder,
		secureCookie: secureCookie,
		log:          logger.OrNop(log),
	}
}

type aliasRequest struct {
	Alias string `json:"alias" binding:"required"`
}

type identityResponse struct {
	ID    string `json:"id"`
	Alias string `json:"alias"`
}

type sessionResponse struct {
	Identity  identityResponse `json:"identity"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	ExpiresIn int64            `json:"expiresIn"`
}

func newSessionResponse(session *domain.Session) sessionResponse {
	return sessionResponse{
		Identity:  identityResponse{ID: session.IdentityID, Alias: session.Alias},
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		ExpiresIn: int64(session.ExpiresAt.Sub(session.IssuedAt).Seconds()),
	}
}

// SignUp 注册别名并登录
//
// 别名已被占用时默认返回 409；带 ?fallback=signin 时改为直接登录该别名。
// 存储不可用等其他错误不会触发回退。
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req aliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	session, err := h.binder.SignUp(c.Request.Context(), req.Alias)
	if err != nil && domain.IsKind(err, domain.KindAliasTaken) && c.Query("fallback") == "signin" {
		h.log.Info("alias taken, falling back to sign in")
		session, err = h.binder.SignIn(c.Request.Context(), req.Alias)
		if err == nil {
			h.setSessionCookie(c, session)
			Success(c, newSessionResponse(session))
			return
		}
	}
	if err != nil {
		respondError(c, h.log, "sign up", err)
		return
	}

	h.setSessionCookie(c, session)
	Created(c, newSessionResponse(session))
}

// SignIn 以别名登录
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req aliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	session, err := h.binder.SignIn(c.Request.Context(), req.Alias)
	if err != nil {
		respondError(c, h.log, "sign in", err)
		return
	}

	h.setSessionCookie(c, session)
	Success(c, newSessionResponse(session))
}

// SignOut 登出当前会话，重复调用同样返回成功
func (h *AuthHandler) SignOut(c *gin.Context) {
	session, _ := middleware.CurrentSession(c)
	if err := h.binder.SignOut(c.Request.Context(), session); err != nil {
		respondError(c, h.log, "sign out", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	SuccessWithMsg(c, "已登出", nil)
}

// Me 返回当前会话的身份
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	identity, err := h.binder.Me(c.Request.Context(), session)
	if err != nil {
		respondError(c, h.log, "get identity", err)
		return
	}

	Success(c, gin.H{
		"id":        identity.ID,
		"alias":     identity.Alias,
		"createdAt": identity.CreatedAt,
		"expiresAt": session.ExpiresAt,
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, session *domain.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, session.Token, maxAge, "/", "", h.secureCookie, true)
}
