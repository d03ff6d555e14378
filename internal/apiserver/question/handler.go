// Package question 题目领域 - HTTP 处理
package question

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage"
	"questions-admin/internal/shared/validate"
)

// Store 题目域所需的存储能力
type Store interface {
	storage.QuestionStore
	storage.CategoryStore
}

// Handler 题目 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建题目处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册题目相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/questions", h.List)
	mux.HandleFunc("POST /v1/questions", h.Create)
	mux.HandleFunc("GET /v1/questions/stats", h.Stats)
	mux.HandleFunc("GET /v1/questions/categories", h.Categories)
	mux.HandleFunc("GET /v1/questions/levels", h.Levels)
	mux.HandleFunc("GET /v1/questions/category/{category}", h.ListByCategory)
	mux.HandleFunc("GET /v1/questions/level/{level}", h.ListByLevel)
	mux.HandleFunc("GET /v1/questions/{id}", h.Get)
	mux.HandleFunc("PUT /v1/questions/{id}", h.Update)
	mux.HandleFunc("DELETE /v1/questions/{id}", h.Delete)
}

// listConfig 题目列表查询配置
func listConfig() listquery.Config {
	return listquery.Config{
		SearchFields: []string{"title", "answer"},
		MinSearchLen: 2,
		MaxSearchLen: 100,
		AllowedSorts: map[string]string{
			"title":     "title",
			"category":  "category_id",
			"level":     "level",
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
	Title    string `json:"title" validate:"required,min=10,max=500"`
	Answer   string `json:"answer" validate:"required,min=20,max=5000"`
	Category string `json:"category" validate:"required,objectid"`
	Level    string `json:"level" validate:"required,level"`
}

type updateRequest struct {
	Title    *string `json:"title" validate:"omitempty,min=10,max=500"`
	Answer   *string `json:"answer" validate:"omitempty,min=20,max=5000"`
	Category *string `json:"category" validate:"omitempty,objectid"`
	Level    *string `json:"level" validate:"omitempty,level"`
}

type listData struct {
	Questions  []*model.Question    `json:"questions"`
	Pagination listquery.Pagination `json:"pagination"`
}

// ============================================================================
// HTTP 处理函数
// ============================================================================

// List 题目列表
// GET /v1/questions?page=&limit=&search=&category=&level=&sortBy=&sortOrder=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q, err := listquery.Parse(values, listConfig())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if category := values.Get("category"); category != "" {
		if !validate.ObjectID(category) {
			writeError(w, http.StatusBadRequest, "Invalid category ID format")
			return
		}
		q.AddFilter("category_id", category)
	}
	if level := values.Get("level"); level != "" {
		if !model.ValidLevel(model.QuestionLevel(level)) {
			writeError(w, http.StatusBadRequest, "Please select a valid level")
			return
		}
		q.AddFilter("level", level)
	}

	h.respondList(w, r, q)
}

// ListByCategory 按分类查询题目，固定 createdAt 降序
// GET /v1/questions/category/{category}
func (h *Handler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if !validate.ObjectID(category) {
		writeError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	q, err := listquery.Parse(pageOnly(r.URL.Query()), listConfig())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.AddFilter("category_id", category)
	h.respondList(w, r, q)
}

// ListByLevel 按难度查询题目，固定 createdAt 降序
// GET /v1/questions/level/{level}
func (h *Handler) ListByLevel(w http.ResponseWriter, r *http.Request) {
	level := r.PathValue("level")
	if !model.ValidLevel(model.QuestionLevel(level)) {
		writeError(w, http.StatusBadRequest, "Please select a valid level")
		return
	}

	q, err := listquery.Parse(pageOnly(r.URL.Query()), listConfig())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.AddFilter("level", level)
	h.respondList(w, r, q)
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, q *listquery.Query) {
	questions, total, err := h.store.ListQuestions(r.Context(), q)
	if err != nil {
		log.Printf("[question.list] ListQuestions error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch questions")
		return
	}
	writeSuccess(w, http.StatusOK, "Questions retrieved successfully", listData{
		Questions:  questions,
		Pagination: q.Paginate(total),
	})
}

// pageOnly 只保留分页参数，路径参数决定过滤、排序固定
func pageOnly(values url.Values) url.Values {
	out := url.Values{}
	for _, k := range []string{"page", "limit"} {
		if v := values.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	return out
}

// Stats 题库统计
// GET /v1/questions/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.QuestionStats(r.Context())
	if err != nil {
		log.Printf("[question.stats] QuestionStats error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch question stats")
		return
	}
	writeSuccess(w, http.StatusOK, "Question stats retrieved successfully", stats)
}

// Categories 题库中实际使用的分类 ID 集合
// GET /v1/questions/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.DistinctQuestionCategories(r.Context())
	if err != nil {
		log.Printf("[question.categories] DistinctQuestionCategories error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	writeSuccess(w, http.StatusOK, "Categories retrieved successfully", cats)
}

// Levels 题库中实际使用的难度集合
// GET /v1/questions/levels
func (h *Handler) Levels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.store.DistinctQuestionLevels(r.Context())
	if err != nil {
		log.Printf("[question.levels] DistinctQuestionLevels error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch levels")
		return
	}
	writeSuccess(w, http.StatusOK, "Levels retrieved successfully", levels)
}

// Create 创建题目
// POST /v1/questions
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

	// 分类必须存在
	if _, err := h.store.GetCategory(r.Context(), req.Category); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Invalid category ID")
			return
		}
		log.Printf("[question.create] GetCategory error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	now := time.Now()
	qn := &model.Question{
		ID:         generateID(),
		Title:      req.Title,
		Answer:     req.Answer,
		CategoryID: req.Category,
		Level:      model.QuestionLevel(req.Level),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.store.CreateQuestion(r.Context(), qn); err != nil {
		log.Printf("[question.create] CreateQuestion error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create question")
		return
	}

	log.Printf("[question] Question created: %s", qn.ID)
	writeSuccess(w, http.StatusCreated, "Question created successfully", qn)
}

// Get 查询单个题目
// GET /v1/questions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid question ID format")
		return
	}

	qn, err := h.store.GetQuestion(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Question not found")
			return
		}
		log.Printf("[question.get] GetQuestion error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch question")
		return
	}
	writeSuccess(w, http.StatusOK, "Question retrieved successfully", qn)
}

// Update 更新题目（部分更新，只改提供的字段）
// PUT /v1/questions/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid question ID format")
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

	qn, err := h.store.GetQuestion(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Question not found")
			return
		}
		log.Printf("[question.update] GetQuestion error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch question")
		return
	}

	if req.Category != nil {
		if _, err := h.store.GetCategory(r.Context(), *req.Category); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Invalid category ID")
				return
			}
			log.Printf("[question.update] GetCategory error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		qn.CategoryID = *req.Category
	}
	if req.Title != nil {
		qn.Title = *req.Title
	}
	if req.Answer != nil {
		qn.Answer = *req.Answer
	}
	if req.Level != nil {
		qn.Level = model.QuestionLevel(*req.Level)
	}
	qn.UpdatedAt = time.Now()

	if err := h.store.UpdateQuestion(r.Context(), qn); err != nil {
		log.Printf("[question.update] UpdateQuestion error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update question")
		return
	}
	writeSuccess(w, http.StatusOK, "Question updated successfully", qn)
}

// Delete 删除题目
// DELETE /v1/questions/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validate.ObjectID(id) {
		writeError(w, http.StatusBadRequest, "Invalid question ID format")
		return
	}

	if err := h.store.DeleteQuestion(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Question not found")
			return
		}
		log.Printf("[question.delete] DeleteQuestion error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete question")
		return
	}
	log.Printf("[question] Question deleted: %s", id)
	writeSuccess(w, http.StatusOK, "Question deleted successfully", nil)
}
