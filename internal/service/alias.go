package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"secrethobby/backend/internal/cache"
	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/monitoring"
	"secrethobby/backend/internal/storage"
)

// CredentialBinder 在身份写入前为其生成凭据，返回 nil 表示不写凭据
type CredentialBinder func(identity *domain.Identity) (*domain.Credential, error)

// AliasDirectory 维护别名到身份的映射。
// 别名唯一性由存储层唯一索引保证，这里不做先查后插的检查。
type AliasDirectory struct {
	repo    storage.IdentityRepository
	cache   *cache.LocalCache[domain.Identity]
	metrics *monitoring.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewAliasDirectory 创建别名目录。identities 为 nil 时不缓存查询结果。
func NewAliasDirectory(repo storage.IdentityRepository, identities *cache.LocalCache[domain.Identity], metrics *monitoring.Metrics, log *zap.Logger) *AliasDirectory {
	return &AliasDirectory{
		repo:    repo,
		cache:   identities,
		metrics: metrics,
		log:     logger.OrNop(log),
		now:     time.Now,
	}
}

// Register 注册新别名
func (d *AliasDirectory) Register(ctx context.Context, alias string) (*domain.Identity, error) {
	return d.RegisterWithCredential(ctx, alias, nil)
}

// RegisterWithCredential 注册新别名，并在同一次写入中保存 bind 生成的凭据。
//
// 返回值:
//   - AliasTaken: 规范化后的别名已存在（含并发注册时的唯一约束冲突）
//   - ValidationError: 别名为空或不合法
//   - StoreUnavailable: 存储不可用
func (d *AliasDirectory) RegisterWithCredential(ctx context.Context, alias string, bind CredentialBinder) (*domain.Identity, error) {
	normalized, err := domain.ValidateAlias(alias)
	if err != nil {
		return nil, err
	}

	identity := &domain.Identity{
		ID:        uuid.New().String(),
		Alias:     normalized,
		CreatedAt: d.now().UTC(),
	}

	var cred *domain.Credential
	if bind != nil {
		if cred, err = bind(identity); err != nil {
			return nil, err
		}
	}

	if err := d.repo.CreateIdentity(ctx, identity, cred); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, domain.NewError(domain.KindAliasTaken, "alias "+normalized+" already taken", err)
		}
		d.log.Error("failed to register alias", zap.String("alias", normalized), zap.Error(err))
		return nil, storeFailure("register alias", err, domain.KindStoreUnavailable)
	}

	d.remember(identity)
	d.metrics.RecordIdentityRegistered()
	d.log.Info("alias registered",
		zap.String("identity_id", identity.ID),
		zap.String("alias", identity.Alias),
	)
	return identity, nil
}

// Lookup 按别名查找身份，大小写不敏感
func (d *AliasDirectory) Lookup(ctx context.Context, alias string) (*domain.Identity, error) {
	normalized, err := domain.ValidateAlias(alias)
	if err != nil {
		return nil, err
	}

	if identity, ok := d.cached("alias:" + normalized); ok {
		return identity, nil
	}

	identity, err := d.repo.GetIdentityByAlias(ctx, normalized)
	if err != nil {
		return nil, storeFailure("lookup alias", err, domain.KindAliasNotFound)
	}

	d.remember(identity)
	return identity, nil
}

// Get 按 ID 获取身份
func (d *AliasDirectory) Get(ctx context.Context, id string) (*domain.Identity, error) {
	if identity, ok := d.cached("id:" + id); ok {
		return identity, nil
	}

	identity, err := d.repo.GetIdentity(ctx, id)
	if err != nil {
		return nil, storeFailure("get identity", err, domain.KindNotFound)
	}

	d.remember(identity)
	return identity, nil
}

// 身份创建后不可修改也不会删除，缓存不需要失效
func (d *AliasDirectory) remember(identity *domain.Identity) {
	if d.cache == nil {
		return
	}
	d.cache.Set("alias:"+identity.Alias, *identity, 0)
	d.cache.Set("id:"+identity.ID, *identity, 0)
}

func (d *AliasDirectory) cached(key string) (*domain.Identity, bool) {
	if d.cache == nil {
		return nil, false
	}
	identity, ok := d.cache.Get(key)
	if !ok {
		return nil, false
	}
	return &identity, true
}
