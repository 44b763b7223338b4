package domain

import "time"

// RequestStatus 协作请求状态
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// Valid 判断状态值是否合法
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestDeclined:
		return true
	}
	return false
}

// IsTerminal 终态不可再变更
func (s RequestStatus) IsTerminal() bool {
	return s == RequestAccepted || s == RequestDeclined
}

// CanTransitionTo 只允许 pending -> accepted | declined
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == RequestPending && next.IsTerminal()
}

// CollaborationRequest 非所有者针对某条发布提出的协作请求。
// RequesterID 与 CreatedAt 创建后不可修改，状态只能由发布所有者变更。
type CollaborationRequest struct {
	ID               string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ListingID        string        `json:"listingId" gorm:"column:hobby_id;type:varchar(36);index;not null"`
	RequesterID      string        `json:"requesterId" gorm:"type:varchar(36);index;not null"`
	OfferDescription string        `json:"offerDescription" gorm:"type:text;not null"`
	Message          string        `json:"message,omitempty" gorm:"type:text"`
	Status           RequestStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CreatedAt        time.Time     `json:"createdAt" gorm:"index"`
	UpdatedAt        time.Time     `json:"updatedAt"`

	Listing   *Listing  `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
	Requester *Identity `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
}

// TableName 指定协作请求所在的表
func (CollaborationRequest) TableName() string {
	return "collaboration_requests"
}

// RequesterAlias 返回请求者别名（需预加载 Requester）
func (r *CollaborationRequest) RequesterAlias() string {
	if r.Requester == nil {
		return ""
	}
	return r.Requester.Alias
}

// Inbox 某个身份的收件箱：发出的请求与收到的请求，各自按创建时间倒序
type Inbox struct {
	Sent     []CollaborationRequest `json:"sent"`
	Received []CollaborationRequest `json:"received"`
}
