package server

import (
	"net/http"

	"questions-admin/internal/apiserver/auth"
	"questions-admin/internal/apiserver/category"
	"questions-admin/internal/apiserver/question"
	"questions-admin/internal/apiserver/role"
	"questions-admin/internal/apiserver/user"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 公开接口（免认证）:
//   - GET  /health          - 服务健康检查
//   - GET  /metrics         - Prometheus 指标
//   - POST /v1/auth/signup  - 注册
//   - POST /v1/auth/login   - 登录
//
// 认证接口 (Auth):
//   - GET/PUT /v1/auth/profile - 当前用户资料
//
// 用户管理 (User):
//   - GET/POST /v1/auth/users, GET/PUT/DELETE /v1/auth/users/{id},
//     GET /v1/auth/users/role/{roleId}
//
// 题目管理 (Question):
//   - GET/POST /v1/questions, GET/PUT/DELETE /v1/questions/{id},
//     GET stats / categories / levels / category/{category} / level/{level}
//
// 分类管理 (Category):
//   - GET/POST /v1/categories, GET/PUT/DELETE /v1/categories/{id},
//     GET active / with-counts, PATCH {id}/toggle-status, PUT sort-order
//
// 角色管理 (Role):
//   - GET/POST /v1/roles, GET/PUT/DELETE /v1/roles/{id},
//     GET with-counts / const/{roleConst}, PUT bulk-update
//
// 中间件链（外→内）: CORS → 限流 → 认证 → 指标 → 路由
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", h.metrics.Handler())

	// Auth 接口（注册/登录/资料）
	authHandler := auth.NewHandler(h.store, h.authCfg)
	authHandler.RegisterRoutes(mux)

	// 用户管理接口
	userHandler := user.NewHandler(h.store)
	userHandler.RegisterRoutes(mux)

	// 题目管理接口
	questionHandler := question.NewHandler(h.store)
	questionHandler.RegisterRoutes(mux)

	// 分类管理接口
	categoryHandler := category.NewHandler(h.store)
	categoryHandler.RegisterRoutes(mux)

	// 角色管理接口
	roleHandler := role.NewHandler(h.store)
	roleHandler.RegisterRoutes(mux)

	// 未匹配路由统一 404 封装
	mux.HandleFunc("/", h.NotFound)

	// 应用指标中间件
	inner := h.metrics.Middleware(mux)

	// 应用认证中间件，未匹配路由绕过认证直达 404 封装
	handler := routeAware(mux, inner, auth.Middleware(h.store, h.authCfg)(inner))

	// 应用限流中间件（认证之前，未认证请求也计数）
	handler = h.rateLimitMiddleware(handler)

	// 应用 CORS 中间件
	return corsMiddleware(h.corsOrigin, handler)
}

// routeAware 按路由匹配结果分流：落到 "/" 兜底（即未注册路由）的请求
// 不需要令牌就能拿到 404 响应，只有命中具体路由的请求走认证链
func routeAware(mux *http.ServeMux, unmatched, matched http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern == "/" || pattern == "" {
			unmatched.ServeHTTP(w, r)
			return
		}
		matched.ServeHTTP(w, r)
	})
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
