package domain

import "time"

// Identity 表示一个由别名绑定的匿名身份。
// 别名在创建后不可修改，大小写不敏感且全局唯一（存储层唯一索引保证）。
type Identity struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Alias     string    `json:"alias" gorm:"uniqueIndex;type:varchar(255);not null"` // 规范化后的别名
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定身份记录所在的表
func (Identity) TableName() string {
	return "users"
}

// Credential 表示由别名派生出的凭据记录。
// SecretHash 为派生密钥的 bcrypt 哈希，不会返回给前端。
type Credential struct {
	IdentityID string    `json:"identityId" gorm:"primaryKey;type:varchar(36)"`
	Login      string    `json:"login" gorm:"uniqueIndex;type:varchar(320);not null"`
	SecretHash string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName 指定凭据记录所在的表
func (Credential) TableName() string {
	return "credentials"
}
