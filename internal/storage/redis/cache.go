package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/storage"
)

const (
	sessionKeyPrefix   = "session:"
	blacklistKeyPrefix = "jwt:blacklist:"
)

// Cache 基于 Redis 的会话与令牌黑名单存储
type Cache struct {
	client *Client
}

// NewCache 创建 Redis 会话存储
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func blacklistKey(jti string) string {
	return blacklistKeyPrefix + jti
}

// wrap 将 Redis 错误统一映射到存储层哨兵错误
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, storage.ErrUnavailable, err)
}

// ========== 会话 ==========

// SaveSession 保存会话，过期时间由 ttl 控制
func (c *Cache) SaveSession(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return wrap("save session", c.client.rdb.Set(ctx, sessionKey(session.ID), data, ttl).Err())
}

// GetSession 获取会话
func (c *Cache) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	data, err := c.client.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		return nil, wrap("get session", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// DeleteSession 删除会话，不存在时不报错
func (c *Cache) DeleteSession(ctx context.Context, id string) error {
	return wrap("delete session", c.client.rdb.Del(ctx, sessionKey(id)).Err())
}

// ========== JWT 黑名单 ==========

// AddToBlacklist 将令牌加入黑名单
func (c *Cache) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	return wrap("blacklist token", c.client.rdb.Set(ctx, blacklistKey(jti), "1", ttl).Err())
}

// IsBlacklisted 检查令牌是否在黑名单中
func (c *Cache) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.rdb.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, wrap("check blacklist", err)
	}
	return n > 0, nil
}

// Close 关闭连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health 检查 Redis 连接
func (c *Cache) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}
