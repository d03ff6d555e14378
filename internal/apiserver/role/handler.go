// Package role 角色领域 - HTTP 处理
package role

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage"
	"questions-admin/internal/shared/validate"
)

// Store 角色域所需的存储能力
type Store interface {
	storage.RoleStore
	CountUsersByRole(ctx context.Context, roleID string) (int64, error)
}

// Handler 角色 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建角色处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册角色相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/roles", h.List)
	mux.HandleFunc("POST /v1/roles", h.Create)
	mux.HandleFunc("GET /v1/roles/with-counts", h.ListWithCounts)
	mux.HandleFunc("GET /v1/roles/const/{roleConst}", h.GetByConst)
	mux.HandleFunc("PUT /v1/roles/bulk-update", h.BulkUpdate)
	mux.HandleFunc("GET /v1/roles/{id}", h.Get)
	mux.HandleFunc("PUT /v1/roles/{id}", h.Update)
	mux.HandleFunc("DELETE /v1/roles/{id}", h.Delete)
}

// listConfig 角色列表查询配置
func listConfig() listquery.Config {
	return listquery.Config{
		SearchFields: []string{"role_const"},
		MaxSearchLen: 100,
		AllowedSorts: map[string]string{
			"roleConst": "role_const",
			"createdAt": "created_at",
			"updatedAt": "updated_at",
		},
		DefaultSort: "roleConst",
		DefaultAsc:  true,
	}
}

// ============================================================================
// 请求类型
// ============================================================================

type roleRequest struct {
	RoleConst string `json:"roleConst" validate:"required,max=50"`
}

type bulkItem struct {
	ID        string `json:"id" validate:"required,objectid"`
	RoleConst string `json:"roleConst" validate:"required,max=50"`
}

type bulkUpdateRequest struct {
	Roles []bulkItem `json:"roles" validate:"required,min=1,max=50,dive"`
}

type listData struct {
	Roles      []*model.Role        `json:"roles"`
	Pagination listquery.Pagination `json:"pagination"`
}

// ============================================================================
// HTTP 处理函数
// ============================================================================

// List 角色列表
// GET /v1/roles?page=&limit=&search=&sortBy=&sortOrder=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, err := listquery.Parse(r.URL.Query(), listConfig())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	roles, total, err := h.store.ListRoles(r.Context(), q)
	if err != nil {
		log.Printf("[role.list] ListRoles error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch roles")
		return
	}
	writeSuccess(w, http.StatusOK, "Roles retrieved successfully", listData{
		Roles:      roles,
		Pagination: q.Paginate(total),
	})
}

// ListWithCounts 角色列表及引用用户数
// GET /v1/roles/with-counts
func (h *Handler) ListWithCounts(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRolesWithUserCounts(r.Context())
	if err != nil {
		log.Printf("[role.counts] ListRolesWithUserCounts error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch roles")
		return
	}
	writeSuccess(w, http.StatusOK, "Roles retrieved successfully", roles)
}

// Create 创建角色，常量写入前统一转大写
// POST /v1/roles
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	roleConst := model.NormalizeRoleConst(req.RoleConst)
	if !model.ValidRoleConst(roleConst) {
		writeError(w, http.StatusBadRequest, "Role constant must contain only uppercase letters, numbers, and underscores")
		return
	}

	existing, err := h.store.GetRoleByConst(r.Context(), roleConst)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[role.create] GetRoleByConst error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Role with this constant already exists")
		return
	}

	now := time.Now()
	role := &model.Role{
		ID:        generateID(),
		RoleConst: roleConst,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateRole(r.Context(), role); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Role with this constant already exists")
			return
		}
		log.Printf("[role.create] CreateRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create role")
		return
	}

	log.Printf("[role] Role created: %s (%s)", role.RoleConst, role.ID)
	writeSuccess(w, http.StatusCreated, "Role created successfully", role)
}

// Get 查询单个角色
// GET /v1/roles/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid role ID format")
		return
	}

	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Role not found")
			return
		}
		log.Printf("[role.get] GetRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch role")
		return
	}
	writeSuccess(w, http.StatusOK, "Role retrieved successfully", role)
}

// GetByConst 按常量查询角色（大小写不敏感）
// GET /v1/roles/const/{roleConst}
func (h *Handler) GetByConst(w http.ResponseWriter, r *http.Request) {
	roleConst := model.NormalizeRoleConst(r.PathValue("roleConst"))
	if !model.ValidRoleConst(roleConst) {
		writeError(w, http.StatusBadRequest, "Invalid role constant format")
		return
	}

	role, err := h.store.GetRoleByConst(r.Context(), roleConst)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Role not found")
			return
		}
		log.Printf("[role.byconst] GetRoleByConst error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch role")
		return
	}
	writeSuccess(w, http.StatusOK, "Role retrieved successfully", role)
}

// Update 更新角色常量
// PUT /v1/roles/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid role ID format")
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	roleConst := model.NormalizeRoleConst(req.RoleConst)
	if !model.ValidRoleConst(roleConst) {
		writeError(w, http.StatusBadRequest, "Role constant must contain only uppercase letters, numbers, and underscores")
		return
	}

	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Role not found")
			return
		}
		log.Printf("[role.update] GetRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch role")
		return
	}

	// 常量被其他角色占用时拒绝
	existing, err := h.store.GetRoleByConst(r.Context(), roleConst)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[role.update] GetRoleByConst error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing != nil && existing.ID != id {
		writeError(w, http.StatusConflict, "Role with this constant already exists")
		return
	}

	role.RoleConst = roleConst
	role.UpdatedAt = time.Now()
	if err := h.store.UpdateRole(r.Context(), role); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Role with this constant already exists")
			return
		}
		log.Printf("[role.update] UpdateRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update role")
		return
	}
	writeSuccess(w, http.StatusOK, "Role updated successfully", role)
}

// BulkUpdate 批量更新角色常量
// PUT /v1/roles/bulk-update
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}

	updated := make([]*model.Role, 0, len(req.Roles))
	for _, item := range req.Roles {
		roleConst := model.NormalizeRoleConst(item.RoleConst)
		if !model.ValidRoleConst(roleConst) {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid role constant for role %s", item.ID))
			return
		}

		role, err := h.store.GetRole(r.Context(), item.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Role not found: %s", item.ID))
				return
			}
			log.Printf("[role.bulk] GetRole error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update roles")
			return
		}

		role.RoleConst = roleConst
		role.UpdatedAt = time.Now()
		if err := h.store.UpdateRole(r.Context(), role); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				writeError(w, http.StatusConflict,
					fmt.Sprintf("Role with constant %s already exists", roleConst))
				return
			}
			log.Printf("[role.bulk] UpdateRole error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update roles")
			return
		}
		updated = append(updated, role)
	}

	log.Printf("[role] Bulk updated %d roles", len(updated))
	writeSuccess(w, http.StatusOK, "Roles updated successfully", updated)
}

// Delete 删除角色，有用户引用时拒绝
// DELETE /v1/roles/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid role ID format")
		return
	}

	// 引用预检与删除不在同一事务：两步之间插入的用户是已接受的竞态窗口
	count, err := h.store.CountUsersByRole(r.Context(), id)
	if err != nil {
		log.Printf("[role.delete] CountUsersByRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete role")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("Cannot delete role: %d user(s) are assigned to this role", count))
		return
	}

	if err := h.store.DeleteRole(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Role not found")
			return
		}
		log.Printf("[role.delete] DeleteRole error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete role")
		return
	}
	log.Printf("[role] Role deleted: %s", id)
	writeSuccess(w, http.StatusOK, "Role deleted successfully", nil)
}
