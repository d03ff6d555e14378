package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage"
	"questions-admin/internal/shared/validate"
)

// Store 认证域所需的存储能力
type Store interface {
	storage.UserStore
	storage.RoleStore
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store Store
	cfg   Config
}

// NewHandler 创建认证处理器
func NewHandler(store Store, cfg Config) *Handler {
	return &Handler{store: store, cfg: cfg}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/signup", h.Signup)
	mux.HandleFunc("POST /v1/auth/login", h.Login)
	mux.HandleFunc("GET /v1/auth/profile", h.GetProfile)
	mux.HandleFunc("PUT /v1/auth/profile", h.UpdateProfile)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type signupRequest struct {
	FullName string  `json:"fullName" validate:"required,min=2,max=100"`
	Mobile   string  `json:"mobile" validate:"required,mobile"`
	Password string  `json:"password" validate:"required,min=6"`
	RoleID   *string `json:"roleId" validate:"omitempty,objectid"`
}

type loginRequest struct {
	Mobile   string `json:"mobile" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=2,max=100"`
	Mobile   *string `json:"mobile" validate:"omitempty,mobile"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	RoleID   *string `json:"roleId" validate:"omitempty,objectid"`
}

type authData struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// ============================================================================
// Handlers
// ============================================================================

// Signup 用户注册
// POST /v1/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	// 手机号占用预检（友好错误信息，唯一索引兜底）
	existing, err := h.store.GetUserByMobile(r.Context(), req.Mobile)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[auth.signup] GetUserByMobile error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "User with this mobile number already exists")
		return
	}

	// roleId 必须指向存在的角色
	if req.RoleID != nil {
		if _, err := h.store.GetRole(r.Context(), *req.RoleID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Invalid role ID")
				return
			}
			log.Printf("[auth.signup] GetRole error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[auth.signup] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID(),
		FullName:     req.FullName,
		Mobile:       req.Mobile,
		PasswordHash: hash,
		RoleID:       req.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// 并发注册穿过预检，唯一索引兜住
			writeError(w, http.StatusConflict, "User with this mobile number already exists")
			return
		}
		log.Printf("[auth.signup] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := GenerateToken(h.cfg, user.ID)
	if err != nil {
		log.Printf("[auth.signup] GenerateToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	created, err := h.store.GetUser(r.Context(), user.ID)
	if err != nil {
		log.Printf("[auth.signup] GetUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	created.PasswordHash = ""

	log.Printf("[auth] User registered: %s (%s)", created.Mobile, created.ID)
	writeSuccess(w, http.StatusCreated, "User registered successfully", authData{
		User:  created,
		Token: token,
	})
}

// Login 用户登录
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	user, err := h.store.GetUserByMobile(r.Context(), req.Mobile)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[auth.login] GetUserByMobile error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// 未注册与密码错误返回同一条信息，不区分
	if user == nil || !CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid mobile number or password")
		return
	}

	token, err := GenerateToken(h.cfg, user.ID)
	if err != nil {
		log.Printf("[auth.login] GenerateToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user.PasswordHash = ""
	log.Printf("[auth] User logged in: %s", user.Mobile)
	writeSuccess(w, http.StatusOK, "Login successful", authData{
		User:  user,
		Token: token,
	})
}

// GetProfile 获取当前用户信息
// GET /v1/auth/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := Identity(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	writeSuccess(w, http.StatusOK, "Profile retrieved successfully", user)
}

// UpdateProfile 更新当前用户信息（部分更新，只改提供的字段）
// PUT /v1/auth/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity := Identity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	// context 中的身份已剥离哈希，改密码前重新加载完整文档
	user, err := h.store.GetUser(r.Context(), identity.ID)
	if err != nil {
		log.Printf("[auth.profile] GetUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if req.Mobile != nil && *req.Mobile != user.Mobile {
		existing, err := h.store.GetUserByMobile(r.Context(), *req.Mobile)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[auth.profile] GetUserByMobile error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "Mobile number already in use")
			return
		}
		user.Mobile = *req.Mobile
	}
	if req.RoleID != nil {
		if _, err := h.store.GetRole(r.Context(), *req.RoleID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Invalid role ID")
				return
			}
			log.Printf("[auth.profile] GetRole error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		user.RoleID = req.RoleID
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			log.Printf("[auth.profile] HashPassword error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now()

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Mobile number already in use")
			return
		}
		log.Printf("[auth.profile] UpdateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	updated, err := h.store.GetUser(r.Context(), user.ID)
	if err != nil {
		log.Printf("[auth.profile] GetUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	updated.PasswordHash = ""
	writeSuccess(w, http.StatusOK, "Profile updated successfully", updated)
}
