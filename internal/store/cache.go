package store

import (
	"context"
	"sync"
	"time"

	"TicketSync/internal/utils/clock"
	"TicketSync/internal/utils/keylock"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache 带过期时间的进程内缓存；同一键的回源加载串行执行
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
	ttl     time.Duration
	clock   clock.Clock
	loading *keylock.KeyedMutex
}

func NewTTLCache[V any](ttl time.Duration, clk clock.Clock) *TTLCache[V] {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TTLCache[V]{
		entries: make(map[string]cacheEntry[V]),
		ttl:     ttl,
		clock:   clk,
		loading: keylock.New(),
	}
}

// Get 命中且未过期时返回缓存值
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put 按默认TTL写入
func (c *TTLCache[V]) Put(key string, value V) {
	c.PutTTL(key, value, c.ttl)
}

// PutTTL 按指定TTL写入
func (c *TTLCache[V]) PutTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

// Delete 删除缓存
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// GetOrLoad 缓存未命中时调用 load 回源；并发的同键请求只回源一次。
// 返回值 cached 表示结果来自缓存
func (c *TTLCache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	unlock := c.loading.Lock(key)
	defer unlock()

	// 等锁期间可能已被其他请求填充
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.Put(key, v)
	return v, false, nil
}

// Sweep 清理已过期条目，返回清理数量
func (c *TTLCache[V]) Sweep() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len 条目数量（含未清理的过期条目）
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL 默认过期时间
func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }
