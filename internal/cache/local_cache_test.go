package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLocalCache[string](2, time.Minute)
	defer c.Close()
	c.now = func() time.Time { return now }

	t.Run("读写与过期", func(t *testing.T) {
		c.Set("a", "1", 0)
		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "1", v)

		now = now.Add(2 * time.Minute)
		_, ok = c.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("覆盖写不增加条目数", func(t *testing.T) {
		c.Set("a", "1", 0)
		c.Set("a", "2", 0)
		assert.Equal(t, 1, c.Len())
		v, _ := c.Get("a")
		assert.Equal(t, "2", v)
	})

	t.Run("容量满时淘汰最早过期的条目", func(t *testing.T) {
		c.Set("short", "s", time.Second)
		c.Set("long", "l", time.Hour)
		assert.Equal(t, 2, c.Len())
		_, ok := c.Get("long")
		assert.True(t, ok)
	})

	t.Run("清理过期条目", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		c.purgeExpired()
		assert.Equal(t, 1, c.Len())
	})

	c.Close()
	c.Close()
}
