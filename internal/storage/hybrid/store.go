package hybrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"secrethobby/backend/internal/config"
	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/storage"
	"secrethobby/backend/internal/storage/memory"
	"secrethobby/backend/internal/storage/postgres"
	"secrethobby/backend/internal/storage/redis"
)

// Store 混合存储实现：业务记录写入关系型数据库，会话与黑名单写入 Redis
type Store struct {
	storage.RecordStore
	sessions storage.SessionStore
	log      *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// New 组合记录存储与会话存储
func New(records storage.RecordStore, sessions storage.SessionStore, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{RecordStore: records, sessions: sessions, log: log}
}

// Open 根据配置创建存储
//
// 数据库类型为空或 memory 时全部使用内存存储；
// 未启用 Redis 时会话保存在进程内存中。
func Open(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var records storage.RecordStore
	opts := postgres.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		AutoMigrate:     cfg.Database.AutoMigrate,
		Logger:          log,
	}

	switch cfg.Database.Type {
	case "", "memory":
		mem := memory.NewStore()
		if !cfg.Redis.Enabled {
			log.Info("using in-memory store")
			return mem, nil
		}
		records = mem
	case "mysql":
		store, err := postgres.NewMySQLStore(cfg.Database.DSN, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		records = store
	case "postgres", "postgresql":
		store, err := postgres.NewStore(cfg.Database.DSN, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		records = store
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres)", cfg.Database.Type)
	}

	var sessions storage.SessionStore
	if cfg.Redis.Enabled {
		client, err := redis.New(&cfg.Redis, log)
		if err != nil {
			_ = records.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		sessions = redis.NewCache(client)
	} else {
		log.Warn("redis disabled, sessions are kept in process memory")
		sessions = memory.NewStore()
	}

	log.Info("using hybrid store",
		zap.String("database", cfg.Database.Type),
		zap.Bool("redis", cfg.Redis.Enabled),
	)
	return New(records, sessions, log), nil
}

// ========== Session Repository ==========

// SaveSession 保存会话
func (s *Store) SaveSession(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	return s.sessions.SaveSession(ctx, session, ttl)
}

// GetSession 获取会话
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.sessions.GetSession(ctx, id)
}

// DeleteSession 删除会话
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.DeleteSession(ctx, id)
}

// ========== JWT Repository ==========

// AddToBlacklist 将令牌加入黑名单
func (s *Store) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	return s.sessions.AddToBlacklist(ctx, jti, ttl)
}

// IsBlacklisted 检查令牌是否在黑名单中
func (s *Store) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.sessions.IsBlacklisted(ctx, jti)
}

// Close 关闭两个底层存储
func (s *Store) Close() error {
	return errors.Join(s.RecordStore.Close(), s.sessions.Close())
}

// Health 两个底层存储都可用才视为健康
func (s *Store) Health(ctx context.Context) error {
	if err := s.RecordStore.Health(ctx); err != nil {
		return fmt.Errorf("records: %w", err)
	}
	if err := s.sessions.Health(ctx); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	return nil
}
