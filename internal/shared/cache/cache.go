// Package cache 缓存/计数器接口
//
// 目前唯一的使用方是限流中间件：按 key 做固定窗口计数。
// Redis 实现见 cache/redis，内存实现供测试与单机部署退化使用。
package cache

import (
	"context"
	"time"
)

// Counter 固定窗口计数器
type Counter interface {
	// Incr 对 key 计数加一。窗口首次计数时设置过期时间，
	// 返回窗口内的当前计数与剩余存活时间。
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
	Close() error
}
