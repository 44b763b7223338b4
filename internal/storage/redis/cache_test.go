package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"secrethobby/backend/internal/storage"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
	assert.ErrorIs(t, wrap("op", goredis.Nil), storage.ErrNotFound)
	assert.ErrorIs(t, wrap("op", errors.New("i/o timeout")), storage.ErrUnavailable)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
	assert.Equal(t, "jwt:blacklist:abc", blacklistKey("abc"))
}

func TestCache_Unreachable(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := NewCache(NewFromClient(rdb, nil))
	defer cache.Close()

	ctx := context.Background()
	_, err := cache.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = cache.IsBlacklisted(ctx, "jti")
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	assert.ErrorIs(t, cache.Health(ctx), storage.ErrUnavailable)
}
