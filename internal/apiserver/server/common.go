// Package server 路由配置与核心基础设施
//
// 本包把各领域独立包（auth/user/role/category/question）的路由装配为
// 一个 http.Handler，并提供横切中间件：
//   - handler.go: 路由装配、CORS、未匹配路由的 404 响应
//   - metrics.go: Prometheus 指标
//   - ratelimit.go: 固定窗口限流
//   - common.go: Handler 定义、响应封装、健康检查
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"questions-admin/internal/apiserver/auth"
	"questions-admin/internal/shared/cache"
	"questions-admin/internal/shared/storage"
)

// Handler API 入口
//
// 依赖说明：
//   - store: MongoDB 存储层（持久化业务数据）
//   - limiter: 限流计数器（Redis），nil 时限流关闭
type Handler struct {
	store   storage.PersistentStore
	limiter cache.Counter

	authCfg    auth.Config
	rateCfg    RateLimitConfig
	corsOrigin string

	metrics *Metrics
	started time.Time
}

// NewHandler 创建 Handler 实例
func NewHandler(store storage.PersistentStore, limiter cache.Counter, authCfg auth.Config, rateCfg RateLimitConfig, corsOrigin string) *Handler {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &Handler{
		store:      store,
		limiter:    limiter,
		authCfg:    authCfg,
		rateCfg:    rateCfg,
		corsOrigin: corsOrigin,
		metrics:    NewMetrics("api"),
		started:    time.Now(),
	}
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// response 统一响应封装
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Message: message})
}

// healthData 健康检查响应
type healthData struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Timestamp string  `json:"timestamp"`
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 供负载均衡器与监控系统探活，返回进程运行时长（秒）与当前时间。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: "Server is running",
		Data: healthData{
			Status:    "ok",
			Uptime:    time.Since(h.started).Seconds(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// NotFound 未匹配路由的兜底响应，保持统一封装而非 ServeMux 默认纯文本
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found")
}
