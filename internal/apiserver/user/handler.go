// Package user 用户管理领域 - HTTP 处理
package user

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"questions-admin/internal/apiserver/auth"
	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage"
	"questions-admin/internal/shared/validate"
)

// Store 用户域所需的存储能力
type Store interface {
	storage.UserStore
	storage.RoleStore
}

// Handler 用户管理 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建用户管理处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册用户管理相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/auth/users", h.List)
	mux.HandleFunc("POST /v1/auth/users", h.Create)
	mux.HandleFunc("GET /v1/auth/users/role/{roleId}", h.ListByRole)
	mux.HandleFunc("GET /v1/auth/users/{id}", h.Get)
	mux.HandleFunc("PUT /v1/auth/users/{id}", h.Update)
	mux.HandleFunc("DELETE /v1/auth/users/{id}", h.Delete)
}

// listConfig 用户列表查询配置
func listConfig() listquery.Config {
	return listquery.Config{
		SearchFields: []string{"full_name", "mobile"},
		MaxSearchLen: 100,
		AllowedSorts: map[string]string{
			"fullName":  "full_name",
			"mobile":    "mobile",
			"createdAt": "created_at",
			"updatedAt": "updated_at",
		},
		DefaultSort: "createdAt",
		DefaultAsc:  false,
	}
}

// ============================================================================
// 请求类型
// ============================================================================

type createRequest struct {
	FullName string  `json:"fullName" validate:"required,min=2,max=100"`
	Mobile   string  `json:"mobile" validate:"required,mobile"`
	Password string  `json:"password" validate:"required,min=6"`
	RoleID   *string `json:"roleId" validate:"omitempty,objectid"`
}

type updateRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=2,max=100"`
	Mobile   *string `json:"mobile" validate:"omitempty,mobile"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	RoleID   *string `json:"roleId" validate:"omitempty,objectid"`
}

type listData struct {
	Users      []*model.User        `json:"users"`
	Pagination listquery.Pagination `json:"pagination"`
}

// ============================================================================
// HTTP 处理函数
// ============================================================================

// List 用户列表
// GET /v1/auth/users?page=&limit=&search=&roleId=&sortBy=&sortOrder=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q, err := listquery.Parse(values, listConfig())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if roleID := values.Get("roleId"); roleID != "" {
		if !validate.ObjectID(roleID) {
			writeError(w, http.StatusBadRequest, "Invalid role ID format")
			return
		}
		q.AddFilter("role_id", roleID)
	}

	users, total, err := h.store.ListUsers(r.Context(), q)
	if err != nil {
		log.Printf("[user.list] ListUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	writeSuccess(w, http.StatusOK, "Users retrieved successfully", listData{
		Users:      users,
		Pagination: q.Paginate(total),
	})
}

// ListByRole 按角色查询用户
// GET /v1/auth/users/role/{roleId}
func (h *Handler) ListByRole(w http.ResponseWriter, r *http.Request) {
	roleID := r.PathValue("roleId")
	if !validate.ObjectID(roleID) {
		writeError(w, http.StatusBadRequest, "Invalid role ID format")
		return
	}
	if _, err := h.store.GetRole(r.Context(), roleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Role not found")
			return
		}
		log.Printf("[user.byrole] GetRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	q, err := listquery.Parse(r.URL.Query(), listConfig())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.AddFilter("role_id", roleID)

	users, total, err := h.store.ListUsers(r.Context(), q)
	if err != nil {
		log.Printf("[user.byrole] ListUsers error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	writeSuccess(w, http.StatusOK, "Users retrieved successfully", listData{
		Users:      users,
		Pagination: q.Paginate(total),
	})
}

// Create 创建用户
// POST /v1/auth/users
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	existing, err := h.store.GetUserByMobile(r.Context(), req.Mobile)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[user.create] GetUserByMobile error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "User with this mobile number already exists")
		return
	}

	if req.RoleID != nil {
		if _, err := h.store.GetRole(r.Context(), *req.RoleID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Invalid role ID")
				return
			}
			log.Printf("[user.create] GetRole error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("[user.create] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	now := time.Now()
	u := &model.User{
		ID:           generateID(),
		FullName:     req.FullName,
		Mobile:       req.Mobile,
		PasswordHash: hash,
		RoleID:       req.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "User with this mobile number already exists")
			return
		}
		log.Printf("[user.create] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	created, err := h.store.GetUser(r.Context(), u.ID)
	if err != nil {
		log.Printf("[user.create] GetUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	created.PasswordHash = ""
	log.Printf("[user] User created: %s (%s)", created.Mobile, created.ID)
	writeSuccess(w, http.StatusCreated, "User created successfully", created)
}

// Get 查询单个用户
// GET /v1/auth/users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("[user.get] GetUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}
	u.PasswordHash = ""
	writeSuccess(w, http.StatusOK, "User retrieved successfully", u)
}

// Update 更新用户（部分更新，只改提供的字段）
// PUT /v1/auth/users/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("[user.update] GetUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	if req.Mobile != nil && *req.Mobile != u.Mobile {
		existing, err := h.store.GetUserByMobile(r.Context(), *req.Mobile)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[user.update] GetUserByMobile error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "Mobile number already in use")
			return
		}
		u.Mobile = *req.Mobile
	}
	if req.RoleID != nil {
		if _, err := h.store.GetRole(r.Context(), *req.RoleID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Invalid role ID")
				return
			}
			log.Printf("[user.update] GetRole error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		u.RoleID = req.RoleID
	}
	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			log.Printf("[user.update] HashPassword error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = time.Now()

	if err := h.store.UpdateUser(r.Context(), u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Mobile number already in use")
			return
		}
		log.Printf("[user.update] UpdateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	updated, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		log.Printf("[user.update] GetUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	updated.PasswordHash = ""
	writeSuccess(w, http.StatusOK, "User updated successfully", updated)
}

// Delete 删除用户
// DELETE /v1/auth/users/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	// 禁止删除自己的账号
	if identity := auth.Identity(r.Context()); identity != nil && identity.ID == id {
		writeError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("[user.delete] DeleteUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	log.Printf("[user] User deleted: %s", id)
	writeSuccess(w, http.StatusOK, "User deleted successfully", nil)
}
