package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MysteryTitle 神秘模式下对非所有者展示的占位标题
const MysteryTitle = "Mystery Hobby"

// MysteryTag 神秘模式下替换每个标签的占位符
const MysteryTag = "???"

// Tags 有序标签集合，以 JSON 数组形式持久化，保留插入顺序。
type Tags []string

// Value 实现 driver.Valuer
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner
func (t *Tags) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported tags type %T", value)
	}
	if len(data) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	*t = out
	return nil
}

// Listing 表示一条爱好发布。
// OwnerID 创建后不可修改；MysteryMode 只能由所有者修改。
type Listing struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID     string    `json:"ownerId" gorm:"column:user_id;type:varchar(36);index;not null"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Tags        Tags      `json:"tags" gorm:"type:text"`
	MysteryMode bool      `json:"mysteryMode" gorm:"default:false"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`

	Owner *Identity `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}

// TableName 指定发布记录所在的表
func (Listing) TableName() string {
	return "hobbies"
}

// IsOwnedBy 判断给定身份是否为该发布的所有者
func (l *Listing) IsOwnedBy(identityID string) bool {
	return identityID != "" && l.OwnerID == identityID
}

// ListingView 某个查看者看到的发布内容
type ListingView struct {
	ListingID   string    `json:"listingId"`
	OwnerID     string    `json:"ownerId"`
	OwnerAlias  string    `json:"ownerAlias,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	MysteryMode bool      `json:"mysteryMode"`
	Obscured    bool      `json:"obscured"`
	IsOwner     bool      `json:"isOwner"`
	CreatedAt   time.Time `json:"createdAt"`
}
