package storage

import (
	"context"
	"errors"
	"time"

	"secrethobby/backend/internal/domain"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 违反唯一约束
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnavailable 存储不可达（网络、连接池、超时）
	ErrUnavailable = errors.New("store unavailable")
	// ErrConflict 条件更新没有命中任何记录
	ErrConflict = errors.New("conditional update matched no rows")
)

// IdentityRepository 定义身份与凭据的数据存取操作。
type IdentityRepository interface {
	// CreateIdentity 插入身份，cred 非空时在同一事务内写入凭据。
	// 别名或登录名冲突时返回 ErrDuplicate。
	CreateIdentity(ctx context.Context, identity *domain.Identity, cred *domain.Credential) error
	GetIdentity(ctx context.Context, id string) (*domain.Identity, error)
	GetIdentityByAlias(ctx context.Context, alias string) (*domain.Identity, error)
	GetCredential(ctx context.Context, identityID string) (*domain.Credential, error)
}

// ListingRepository 定义发布数据存取操作。
type ListingRepository interface {
	CreateListing(ctx context.Context, listing *domain.Listing) error
	GetListing(ctx context.Context, id string) (*domain.Listing, error) // 预加载 Owner
	ListListings(ctx context.Context) ([]domain.Listing, error)         // 按创建时间倒序
	ListListingsByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error)
	SetMysteryMode(ctx context.Context, id string, on bool) error
}

// RequestRepository 定义协作请求数据存取操作。
type RequestRepository interface {
	CreateRequest(ctx context.Context, req *domain.CollaborationRequest) error
	GetRequest(ctx context.Context, id string) (*domain.CollaborationRequest, error)
	// ListRequestsByRequester 返回该身份发出的请求，附带 Listing 与 Requester
	ListRequestsByRequester(ctx context.Context, requesterID string) ([]domain.CollaborationRequest, error)
	// ListRequestsByListingOwner 返回指向该身份所有发布的请求，附带 Listing 与 Requester
	ListRequestsByListingOwner(ctx context.Context, ownerID string) ([]domain.CollaborationRequest, error)
	// UpdateRequestStatus 仅当当前状态为 from 时更新为 to，否则返回 ErrConflict
	UpdateRequestStatus(ctx context.Context, id string, from, to domain.RequestStatus, at time.Time) (*domain.CollaborationRequest, error)
}

// SessionRepository 定义会话管理操作。
type SessionRepository interface {
	SaveSession(ctx context.Context, session *domain.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// JWTRepository 定义 JWT 黑名单操作。
type JWTRepository interface {
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// RecordStore 持久化业务记录的存储（SQL 或内存）。
type RecordStore interface {
	IdentityRepository
	ListingRepository
	RequestRepository

	Close() error
	Health(ctx context.Context) error
}

// SessionStore 会话与令牌黑名单的存储（Redis 或内存）。
type SessionStore interface {
	SessionRepository
	JWTRepository

	Close() error
	Health(ctx context.Context) error
}

// Store 定义完整的存储接口。
type Store interface {
	IdentityRepository
	ListingRepository
	RequestRepository
	SessionRepository
	JWTRepository

	Close() error
	Health(ctx context.Context) error
}

// Classify 将上下文取消与超时归入 ErrUnavailable，其余错误原样返回
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
