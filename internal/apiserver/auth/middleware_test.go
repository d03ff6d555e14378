package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage/memstore"
)

func testCfg() Config {
	return Config{JWTSecret: "test-secret", TokenTTL: 24 * time.Hour}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testCfg()

	token, err := GenerateToken(cfg, "user-123")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Subject = %q, want user-123", claims.Subject)
	}
}

func TestParseToken_Failures(t *testing.T) {
	cfg := testCfg()

	// 过期令牌：与格式非法区分开
	expired := Config{JWTSecret: cfg.JWTSecret, TokenTTL: -time.Hour}
	token, err := GenerateToken(expired, "user-123")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(cfg, token); err != ErrTokenExpired {
		t.Errorf("expired token error = %v, want ErrTokenExpired", err)
	}

	// 错误密钥
	token, _ = GenerateToken(Config{JWTSecret: "other-secret", TokenTTL: time.Hour}, "user-123")
	if _, err := ParseToken(cfg, token); err != ErrTokenInvalid {
		t.Errorf("wrong secret error = %v, want ErrTokenInvalid", err)
	}

	// 结构非法
	if _, err := ParseToken(cfg, "not.a.token"); err != ErrTokenInvalid {
		t.Errorf("malformed token error = %v, want ErrTokenInvalid", err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword("secret1", hash) {
		t.Error("correct password should verify")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password should not verify")
	}
}

// okHandler 记录请求是否穿过中间件
type okHandler struct{ called bool }

func (h *okHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	w.WriteHeader(http.StatusOK)
}

func TestMiddleware(t *testing.T) {
	cfg := testCfg()
	store := memstore.New()
	ctx := context.Background()

	user := &model.User{ID: "66b1f0a2c3d4e5f601234567", FullName: "Ada", Mobile: "9876543210", PasswordHash: "hash"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := GenerateToken(cfg, user.ID)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	expiredToken, _ := GenerateToken(Config{JWTSecret: cfg.JWTSecret, TokenTTL: -time.Hour}, user.ID)
	deletedToken, _ := GenerateToken(cfg, "66b1f0a2c3d4e5f601234568")

	tests := []struct {
		name        string
		method      string
		path        string
		authHeader  string
		wantStatus  int
		wantThrough bool
	}{
		{"公开路由直接放行", "POST", "/v1/auth/login", "", http.StatusOK, true},
		{"无令牌 401", "GET", "/v1/questions", "", http.StatusUnauthorized, false},
		{"非 Bearer 头 401", "GET", "/v1/questions", "Basic abc", http.StatusUnauthorized, false},
		{"合法令牌放行", "GET", "/v1/questions", "Bearer " + token, http.StatusOK, true},
		{"过期令牌 401", "GET", "/v1/questions", "Bearer " + expiredToken, http.StatusUnauthorized, false},
		{"篡改令牌 401", "GET", "/v1/questions", "Bearer " + token + "x", http.StatusUnauthorized, false},
		{"用户已删除 401", "GET", "/v1/questions", "Bearer " + deletedToken, http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &okHandler{}
			handler := Middleware(store, cfg)(inner)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if inner.called != tt.wantThrough {
				t.Errorf("reached handler = %v, want %v", inner.called, tt.wantThrough)
			}
			if !tt.wantThrough {
				var resp map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("error body not JSON: %v", err)
				}
				if resp["success"] != false {
					t.Errorf("success = %v, want false", resp["success"])
				}
			}
		})
	}
}

// TestMiddleware_IdentityAttached 中间件注入的身份不携带密码哈希
func TestMiddleware_IdentityAttached(t *testing.T) {
	cfg := testCfg()
	store := memstore.New()

	user := &model.User{ID: "66b1f0a2c3d4e5f601234567", FullName: "Ada", Mobile: "9876543210", PasswordHash: "hash"}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, _ := GenerateToken(cfg, user.ID)

	var got *model.User
	handler := Middleware(store, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Identity(r.Context())
	}))

	req := httptest.NewRequest("GET", "/v1/questions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("identity not attached")
	}
	if got.ID != user.ID || got.FullName != "Ada" {
		t.Errorf("identity = %+v", got)
	}
	if got.PasswordHash != "" {
		t.Error("password hash must be stripped before attach")
	}
}
