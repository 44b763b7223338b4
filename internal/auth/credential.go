package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DerivedCredential 由别名派生出的登录凭据
type DerivedCredential struct {
	Login  string
	Secret string
}

// CredentialDeriver 从规范化别名确定性地派生凭据。
// 替换为更强的凭据方案时只需换掉实现，别名目录与请求管理不受影响。
type CredentialDeriver interface {
	Derive(alias string) DerivedCredential
}

// AliasDeriver 使用 HMAC-SHA256(pepper, alias) 作为密钥，登录名为 <alias>@<domain>
type AliasDeriver struct {
	pepper      []byte
	loginDomain string
}

// NewAliasDeriver 创建派生器
func NewAliasDeriver(pepper, loginDomain string) *AliasDeriver {
	return &AliasDeriver{
		pepper:      []byte(pepper),
		loginDomain: strings.TrimPrefix(strings.TrimSpace(loginDomain), "@"),
	}
}

// Derive 派生凭据，相同别名总是得到相同结果
func (d *AliasDeriver) Derive(alias string) DerivedCredential {
	mac := hmac.New(sha256.New, d.pepper)
	mac.Write([]byte(alias))
	return DerivedCredential{
		Login:  alias + "@" + d.loginDomain,
		Secret: hex.EncodeToString(mac.Sum(nil)),
	}
}

// HashSecret 使用 bcrypt 哈希派生密钥
func HashSecret(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// CheckSecret 检查密钥是否与哈希匹配
func CheckSecret(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}
