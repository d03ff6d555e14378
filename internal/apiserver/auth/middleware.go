package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"questions-admin/internal/shared/storage"
)

// 免认证路由（精确匹配）
var publicExact = map[string]bool{
	"POST /v1/auth/signup": true,
	"POST /v1/auth/login":  true,
	"GET /health":          true,
	"GET /metrics":         true,
}

func isPublicRoute(method, path string) bool {
	return publicExact[method+" "+path]
}

// Middleware 创建 JWT 认证中间件
//
// 验证通过后按 subject 从存储加载用户并注入 context：
// 令牌签发后被删除的用户必须拿到 401，令牌不能继续生效。
func Middleware(store storage.UserStore, cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicRoute(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// 提取 Bearer Token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Not authorized, no token provided")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "Not authorized, invalid authorization header")
				return
			}

			// 解析 JWT
			claims, err := ParseToken(cfg, parts[1])
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, "Token expired, please login again")
					return
				}
				writeError(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			// 加载身份
			user, err := store.GetUser(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "Not authorized, user not found")
					return
				}
				log.Printf("[auth] load identity error: %v", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			// 注入前剥离密码哈希
			user.PasswordHash = ""
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user)))
		})
	}
}
