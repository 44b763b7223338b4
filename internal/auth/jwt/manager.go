package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken 无效的令牌
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken 令牌已过期
	ErrExpiredToken = errors.New("token expired")
)

// Claims 会话令牌声明，RegisteredClaims.ID 即会话 ID
type Claims struct {
	IdentityID string `json:"identity_id"`
	Alias      string `json:"alias"`
	jwt.RegisteredClaims
}

// Token 签发结果
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager JWT 管理器
type Manager struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewManager 创建 JWT 管理器
func NewManager(secret, issuer string, expiry time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// Expiry 返回令牌有效期
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Issue 为会话签发令牌
func (m *Manager) Issue(sessionID, identityID, alias string) (*Token, error) {
	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(m.expiry)

	claims := Claims{
		IdentityID: identityID,
		Alias:      alias,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    m.issuer,
			Subject:   identityID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Token{Value: signed, IssuedAt: now, ExpiresAt: expiresAt}, nil
}

// Validate 验证令牌并返回声明
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" || claims.IdentityID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
