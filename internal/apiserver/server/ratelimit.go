// 固定窗口限流中间件
package server

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig 限流配置
//
// 两个桶：通用桶覆盖全部 API，认证桶覆盖注册/登录
// （暴力破解面更小，窗口更严）。
type RateLimitConfig struct {
	Window time.Duration `yaml:"window"`
	Max    int64         `yaml:"max"`

	AuthWindow time.Duration `yaml:"auth_window"`
	AuthMax    int64         `yaml:"auth_max"`
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Window:     15 * time.Minute,
		Max:        300,
		AuthWindow: 15 * time.Minute,
		AuthMax:    20,
	}
}

// 认证桶覆盖的路由（精确匹配）
var authLimited = map[string]bool{
	"POST /v1/auth/signup": true,
	"POST /v1/auth/login":  true,
}

// rateLimitMiddleware 按客户端 IP 做固定窗口计数
//
// 计数器不可用时放行（fail-open）：限流保护可用性，
// 不能因 Redis 故障把整个 API 打挂。
func (h *Handler) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil || r.Method+" "+r.URL.Path == "GET /metrics" {
			next.ServeHTTP(w, r)
			return
		}

		bucket, window, max := "general", h.rateCfg.Window, h.rateCfg.Max
		if authLimited[r.Method+" "+r.URL.Path] {
			bucket, window, max = "auth", h.rateCfg.AuthWindow, h.rateCfg.AuthMax
		}

		key := fmt.Sprintf("ratelimit:%s:%s", bucket, clientIP(r))
		count, ttl, err := h.limiter.Incr(r.Context(), key, window)
		if err != nil {
			log.Printf("[ratelimit] counter error, allowing request: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > max {
			retryAfter := int64(ttl.Seconds() + 0.999)
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			h.metrics.RateLimitedTotal.WithLabelValues(bucket).Inc()
			writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP 提取客户端 IP：优先 X-Forwarded-For 首项（反向代理场景），
// 否则取连接对端地址。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
