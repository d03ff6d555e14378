// Package category 分类领域 - HTTP 处理
package category

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

// Store 分类域所需的存储能力
type Store interface {
	storage.CategoryStore
	CountQuestionsByCategory(ctx context.Context, categoryID string) (int64, error)
}

// Handler 分类 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建分类处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册分类相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/categories", h.List)
	mux.HandleFunc("POST /v1/categories", h.Create)
	mux.HandleFunc("GET /v1/categories/active", h.ListActive)
	mux.HandleFunc("GET /v1/categories/with-counts", h.ListWithCounts)
	mux.HandleFunc("PUT /v1/categories/sort-order", h.UpdateSortOrders)
	mux.HandleFunc("GET /v1/categories/{id}", h.Get)
	mux.HandleFunc("PUT /v1/categories/{id}", h.Update)
	mux.HandleFunc("DELETE /v1/categories/{id}", h.Delete)
	mux.HandleFunc("PATCH /v1/categories/{id}/toggle-status", h.ToggleStatus)
}

// listConfig 分类列表查询配置
//
// questionCount 是聚合排序特例：字段由 $lookup 产生，走聚合管道
func listConfig() listquery.Config {
	return listquery.Config{
		SearchFields: []string{"name", "description"},
		MaxSearchLen: 30,
		AllowedSorts: map[string]string{
			"name":          "name",
			"sortOrder":     "sort_order",
			"createdAt":     "created_at",
			"updatedAt":     "updated_at",
			"questionCount": "question_count",
		},
		AggregateSorts: []string{"questionCount"},
		DefaultSort:    "sortOrder",
		DefaultAsc:     true,
	}
}

// ============================================================================
// 请求类型
// ============================================================================

type createRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=30"`
	Description string `json:"description" validate:"omitempty,max=200"`
	Color       string `json:"color" validate:"omitempty,hexcolor3"`
	Icon        string `json:"icon" validate:"omitempty,max=10"`
	IsActive    *bool  `json:"isActive"`
	SortOrder   *int   `json:"sortOrder" validate:"omitempty,min=0"`
}

type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=30"`
	Description *string `json:"description" validate:"omitempty,max=200"`
	Color       *string `json:"color" validate:"omitempty,hexcolor3"`
	Icon        *string `json:"icon" validate:"omitempty,max=10"`
	IsActive    *bool   `json:"isActive"`
	SortOrder   *int    `json:"sortOrder" validate:"omitempty,min=0"`
}

type sortOrderRequest struct {
	Categories []model.SortOrderUpdate `json:"categories" validate:"required,min=1,dive"`
}

type listData struct {
	Categories any                  `json:"categories"`
	Pagination listquery.Pagination `json:"pagination"`
}

// ============================================================================
// HTTP 处理函数
// ============================================================================

// List 分类列表
// GET /v1/categories?page=&limit=&search=&isActive=&sortBy=&sortOrder=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q, err := listquery.Parse(values, listConfig())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch values.Get("isActive") {
	case "":
	case "true":
		q.AddFilter("is_active", true)
	case "false":
		q.AddFilter("is_active", false)
	default:
		writeError(w, http.StatusBadRequest, `isActive must be either "true" or "false"`)
		return
	}

	// questionCount 排序走 $lookup 聚合，普通字段走 Find
	if q.Aggregate {
		items, total, err := h.store.ListCategoriesByQuestionCount(r.Context(), q)
		if err != nil {
			log.Printf("[category.list] ListCategoriesByQuestionCount error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
			return
		}
		writeSuccess(w, http.StatusOK, "Categories retrieved successfully", listData{
			Categories: items,
			Pagination: q.Paginate(total),
		})
		return
	}

	items, total, err := h.store.ListCategories(r.Context(), q)
	if err != nil {
		log.Printf("[category.list] ListCategories error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	writeSuccess(w, http.StatusOK, "Categories retrieved successfully", listData{
		Categories: items,
		Pagination: q.Paginate(total),
	})
}

// ListActive 启用中的分类（下拉选项用）
// GET /v1/categories/active
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListActiveCategories(r.Context())
	if err != nil {
		log.Printf("[category.active] ListActiveCategories error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	writeSuccess(w, http.StatusOK, "Categories retrieved successfully", items)
}

// ListWithCounts 全部分类及题目数
// GET /v1/categories/with-counts
func (h *Handler) ListWithCounts(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListCategoriesWithQuestionCounts(r.Context())
	if err != nil {
		log.Printf("[category.counts] ListCategoriesWithQuestionCounts error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	writeSuccess(w, http.StatusOK, "Categories retrieved successfully", items)
}

// Create 创建分类，未提供的字段应用默认值
// POST /v1/categories
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

	existing, err := h.store.GetCategoryByName(r.Context(), req.Name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[category.create] GetCategoryByName error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Category with this name already exists")
		return
	}

	now := time.Now()
	cat := &model.Category{
		ID:          generateID(),
		Name:        req.Name,
		Description: req.Description,
		Color:       model.DefaultCategoryColor,
		Icon:        model.DefaultCategoryIcon,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Color != "" {
		cat.Color = req.Color
	}
	if req.Icon != "" {
		cat.Icon = req.Icon
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		cat.SortOrder = *req.SortOrder
	}

	if err := h.store.CreateCategory(r.Context(), cat); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Category with this name already exists")
			return
		}
		log.Printf("[category.create] CreateCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	log.Printf("[category] Category created: %s (%s)", cat.Name, cat.ID)
	writeSuccess(w, http.StatusCreated, "Category created successfully", cat)
}

// Get 查询单个分类
// GET /v1/categories/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	cat, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		log.Printf("[category.get] GetCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch category")
		return
	}
	writeSuccess(w, http.StatusOK, "Category retrieved successfully", cat)
}

// Update 更新分类（部分更新，只改提供的字段）
// PUT /v1/categories/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid category ID format")
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

	cat, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		log.Printf("[category.update] GetCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch category")
		return
	}

	if req.Name != nil {
		existing, err := h.store.GetCategoryByName(r.Context(), *req.Name)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[category.update] GetCategoryByName error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if existing != nil && existing.ID != id {
			writeError(w, http.StatusConflict, "Category with this name already exists")
			return
		}
		cat.Name = *req.Name
	}
	if req.Description != nil {
		cat.Description = *req.Description
	}
	if req.Color != nil {
		cat.Color = *req.Color
	}
	if req.Icon != nil {
		cat.Icon = *req.Icon
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		cat.SortOrder = *req.SortOrder
	}
	cat.UpdatedAt = time.Now()

	if err := h.store.UpdateCategory(r.Context(), cat); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Category with this name already exists")
			return
		}
		log.Printf("[category.update] UpdateCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}
	writeSuccess(w, http.StatusOK, "Category updated successfully", cat)
}

// ToggleStatus 切换启用状态
// PATCH /v1/categories/{id}/toggle-status
func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	cat, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		log.Printf("[category.toggle] GetCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch category")
		return
	}

	cat.IsActive = !cat.IsActive
	cat.UpdatedAt = time.Now()
	if err := h.store.UpdateCategory(r.Context(), cat); err != nil {
		log.Printf("[category.toggle] UpdateCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}

	state := "deactivated"
	if cat.IsActive {
		state = "activated"
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Category %s successfully", state), cat)
}

// UpdateSortOrders 批量更新排序值
// PUT /v1/categories/sort-order
func (h *Handler) UpdateSortOrders(w http.ResponseWriter, r *http.Request) {
	var req sortOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validate.Struct(req); errs != nil {
		writeValidation(w, errs)
		return
	}
	for _, item := range req.Categories {
		if !validate.ObjectID(item.ID) {
			writeError(w, http.StatusBadRequest, "Invalid category ID format")
			return
		}
		if item.SortOrder < 0 {
			writeError(w, http.StatusBadRequest, "sortOrder must be non-negative")
			return
		}
	}

	for _, item := range req.Categories {
		cat, err := h.store.GetCategory(r.Context(), item.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("Category not found: %s", item.ID))
				return
			}
			log.Printf("[category.sortorder] GetCategory error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update sort order")
			return
		}
		cat.SortOrder = item.SortOrder
		cat.UpdatedAt = time.Now()
		if err := h.store.UpdateCategory(r.Context(), cat); err != nil {
			log.Printf("[category.sortorder] UpdateCategory error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update sort order")
			return
		}
	}

	log.Printf("[category] Sort order updated for %d categories", len(req.Categories))
	writeSuccess(w, http.StatusOK, "Category sort order updated successfully", nil)
}

// Delete 删除分类，有题目引用时拒绝
// DELETE /v1/categories/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	// 引用预检与删除不在同一事务：中间插入的题目是已接受的竞态窗口
	count, err := h.store.CountQuestionsByCategory(r.Context(), id)
	if err != nil {
		log.Printf("[category.delete] CountQuestionsByCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("Cannot delete category: %d question(s) belong to this category", count))
		return
	}

	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		log.Printf("[category.delete] DeleteCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	log.Printf("[category] Category deleted: %s", id)
	writeSuccess(w, http.StatusOK, "Category deleted successfully", nil)
}
