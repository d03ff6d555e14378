// Package memcache 内存计数器，语义对齐 cache/redis
package memcache

import (
	"context"
	"sync"
	"time"

	"questions-admin/internal/shared/cache"
)

type window struct {
	count     int64
	expiresAt time.Time
}

// Counter 内存固定窗口计数器，并发安全
type Counter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

var _ cache.Counter = (*Counter)(nil)

// New 创建内存计数器
func New() *Counter {
	return &Counter{windows: map[string]*window{}, now: time.Now}
}

// Incr 实现 cache.Counter
func (c *Counter) Incr(_ context.Context, key string, win time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || now.After(w.expiresAt) {
		w = &window{expiresAt: now.Add(win)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.expiresAt.Sub(now), nil
}

// Close 实现 cache.Counter
func (c *Counter) Close() error { return nil }
