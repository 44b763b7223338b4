package cache

import (
	"sync"
	"time"
)

// LocalCache 本地内存缓存（L1 缓存）
//
// 特点：
// - 使用 sync.Map 实现无锁读取
// - 支持 TTL 过期
// - 后台定期清理过期条目，Close 后停止
// - 容量限制：写满时丢弃一个最早过期的条目
//
// 只适合缓存不可变的数据，例如身份记录（别名创建后不可修改、不会删除）。
type LocalCache[V any] struct {
	data    sync.Map
	size    int
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存
//
// 参数:
//   - maxSize: 最大缓存条目数，<=0 表示不限制
//   - ttl: 默认过期时间
func NewLocalCache[V any](maxSize int, ttl time.Duration) *LocalCache[V] {
	c := &LocalCache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go c.cleanupLoop(time.Minute)

	return c
}

// Get 获取缓存值
func (c *LocalCache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.data.Load(key)
	if !ok {
		return zero, false
	}

	entry := val.(*cacheEntry[V])
	if c.now().After(entry.expiresAt) {
		c.Delete(key)
		return zero, false
	}

	return entry.value, true
}

// Set 设置缓存值，ttl 为 0 时使用默认过期时间
func (c *LocalCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}

	entry := &cacheEntry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, loaded := c.data.Swap(key, entry); loaded {
		return
	}
	c.size++
	if c.maxSize > 0 && c.size > c.maxSize {
		c.evictLocked(key)
	}
}

// Delete 删除缓存值
func (c *LocalCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		c.size--
	}
}

// Len 返回当前条目数（包含尚未清理的过期条目）
func (c *LocalCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Close 停止后台清理
func (c *LocalCache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// evictLocked 丢弃最早过期的条目，跳过刚写入的 key
func (c *LocalCache[V]) evictLocked(keep string) {
	var (
		victim   string
		earliest time.Time
	)
	c.data.Range(func(key, value interface{}) bool {
		k := key.(string)
		if k == keep {
			return true
		}
		entry := value.(*cacheEntry[V])
		if victim == "" || entry.expiresAt.Before(earliest) {
			victim = k
			earliest = entry.expiresAt
		}
		return true
	})
	if victim != "" {
		c.data.Delete(victim)
		c.size--
	}
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *LocalCache[V]) purgeExpired() {
	now := c.now()
	c.data.Range(func(key, value interface{}) bool {
		entry := value.(*cacheEntry[V])
		if now.After(entry.expiresAt) {
			c.Delete(key.(string))
		}
		return true
	})
}
