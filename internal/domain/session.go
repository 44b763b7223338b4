package domain

import "time"

// Session 已认证会话，由 Identity Binder 在注册或登录时创建，登出时销毁。
// 调用方显式持有并传递，不存在进程级的全局会话。
type Session struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identityId"`
	Alias      string    `json:"alias"`
	Token      string    `json:"token,omitempty"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Expired 判断会话在给定时刻是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Identity 返回会话绑定的身份
func (s *Session) Identity() Identity {
	return Identity{ID: s.IdentityID, Alias: s.Alias}
}
