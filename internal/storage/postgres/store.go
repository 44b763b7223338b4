package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/storage"
)

// Options 连接池与迁移参数
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	Logger          *zap.Logger
}

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		AutoMigrate:     true,
	}
}

// Store 基于 GORM 的关系型存储实现，支持 PostgreSQL 与 MySQL
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string, opts Options) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn), opts)
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string, opts Options) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn), opts)
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // 静默模式
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	store := &Store{db: db, log: log}

	if opts.AutoMigrate {
		if err := store.migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	log.Info("database store ready", zap.String("dialect", dialector.Name()))
	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Identity{},
		&domain.Credential{},
		&domain.Listing{},
		&domain.CollaborationRequest{},
	)
}

// ========== Identity Repository ==========

// CreateIdentity 在同一事务中写入身份与凭据
func (s *Store) CreateIdentity(ctx context.Context, identity *domain.Identity, cred *domain.Credential) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(identity).Error; err != nil {
			return err
		}
		if cred != nil {
			if err := tx.Create(cred).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return classify("create identity", err)
}

// GetIdentity 根据 ID 获取身份
func (s *Store) GetIdentity(ctx context.Context, id string) (*domain.Identity, error) {
	var identity domain.Identity
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, classify("get identity", err)
	}
	return &identity, nil
}

// GetIdentityByAlias 根据规范化别名获取身份
func (s *Store) GetIdentityByAlias(ctx context.Context, alias string) (*domain.Identity, error) {
	var identity domain.Identity
	if err := s.db.WithContext(ctx).Where("alias = ?", alias).First(&identity).Error; err != nil {
		return nil, classify("get identity by alias", err)
	}
	return &identity, nil
}

// GetCredential 获取身份绑定的凭据
func (s *Store) GetCredential(ctx context.Context, identityID string) (*domain.Credential, error) {
	var cred domain.Credential
	if err := s.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&cred).Error; err != nil {
		return nil, classify("get credential", err)
	}
	return &cred, nil
}

// ========== Listing Repository ==========

// CreateListing 保存发布
func (s *Store) CreateListing(ctx context.Context, listing *domain.Listing) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error
	return classify("create listing", err)
}

// GetListing 根据 ID 获取发布，附带所有者
func (s *Store) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	var listing domain.Listing
	err := s.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&listing).Error
	if err != nil {
		return nil, classify("get listing", err)
	}
	return &listing, nil
}

// ListListings 返回全部发布，按创建时间倒序
func (s *Store) ListListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, classify("list listings", err)
	}
	return listings, nil
}

// ListListingsByOwner 返回某个身份的全部发布
func (s *Store) ListListingsByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	var listings []domain.Listing
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, classify("list listings by owner", err)
	}
	return listings, nil
}

// SetMysteryMode 更新发布的神秘模式
func (s *Store) SetMysteryMode(ctx context.Context, id string, on bool) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ?", id).
		Update("mystery_mode", on)
	if res.Error != nil {
		return classify("set mystery mode", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL 在值未变化时返回 0 行，需要区分记录不存在
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return classify("set mystery mode", err)
	}
	if count == 0 {
		return fmt.Errorf("set mystery mode: %w", storage.ErrNotFound)
	}
	return nil
}

// ========== Request Repository ==========

// CreateRequest 保存协作请求
func (s *Store) CreateRequest(ctx context.Context, req *domain.CollaborationRequest) error {
	if req.Status == "" {
		req.Status = domain.RequestPending
	}
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
	return classify("create request", err)
}

// GetRequest 根据 ID 获取协作请求，附带发布与请求者
func (s *Store) GetRequest(ctx context.Context, id string) (*domain.CollaborationRequest, error) {
	var req domain.CollaborationRequest
	err := s.withRequestJoins(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, classify("get request", err)
	}
	return &req, nil
}

// ListRequestsByRequester 返回某个身份发出的请求
func (s *Store) ListRequestsByRequester(ctx context.Context, requesterID string) ([]domain.CollaborationRequest, error) {
	var reqs []domain.CollaborationRequest
	err := s.withRequestJoins(ctx).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, classify("list sent requests", err)
	}
	return reqs, nil
}

// ListRequestsByListingOwner 返回指向某个身份所有发布的请求
func (s *Store) ListRequestsByListingOwner(ctx context.Context, ownerID string) ([]domain.CollaborationRequest, error) {
	owned := s.db.WithContext(ctx).Model(&domain.Listing{}).Select("id").Where("user_id = ?", ownerID)

	var reqs []domain.CollaborationRequest
	err := s.withRequestJoins(ctx).
		Where("hobby_id IN (?)", owned).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, classify("list received requests", err)
	}
	return reqs, nil
}

// UpdateRequestStatus 单行条件更新：WHERE id = ? AND status = from
func (s *Store) UpdateRequestStatus(ctx context.Context, id string, from, to domain.RequestStatus, at time.Time) (*domain.CollaborationRequest, error) {
	res := s.db.WithContext(ctx).
		Model(&domain.CollaborationRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at,
		})
	if res.Error != nil {
		return nil, classify("update request status", res.Error)
	}

	if res.RowsAffected == 0 {
		current, err := s.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("request %s is %s: %w", id, current.Status, storage.ErrConflict)
	}

	return s.GetRequest(ctx, id)
}

func (s *Store) withRequestJoins(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Listing").
		Preload("Listing.Owner").
		Preload("Requester")
}

// DB 返回底层的 GORM 连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		if isConnectionError(err) {
			s.log.Warn("database unreachable", zap.Error(err))
		}
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}
