package category

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage/memstore"
)

func newMux(store *memstore.Store) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(store).RegisterRoutes(mux)
	return mux
}

func doReq(t *testing.T, mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResp(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body not JSON: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestCreate_Defaults(t *testing.T) {
	store := memstore.New()
	mux := newMux(store)

	rec := doReq(t, mux, "POST", "/v1/categories", map[string]any{"name": "Golang"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeResp(t, rec)["data"].(map[string]any)
	if data["color"] != model.DefaultCategoryColor {
		t.Errorf("color = %v, want default %s", data["color"], model.DefaultCategoryColor)
	}
	if data["icon"] != model.DefaultCategoryIcon {
		t.Errorf("icon = %v, want default", data["icon"])
	}
	if data["isActive"] != true {
		t.Errorf("isActive = %v, want true", data["isActive"])
	}

	// 名称大小写不敏感重复 409
	rec = doReq(t, mux, "POST", "/v1/categories", map[string]any{"name": "GOLANG"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	// 非法颜色 400
	rec = doReq(t, mux, "POST", "/v1/categories", map[string]any{"name": "Other", "color": "blue"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad color status = %d, want 400", rec.Code)
	}
}

func seedCategories(t *testing.T, store *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	cats := []*model.Category{
		{ID: "66b1f0a2c3d4e5f601234501", Name: "Golang", IsActive: true, SortOrder: 2},
		{ID: "66b1f0a2c3d4e5f601234502", Name: "Python", IsActive: true, SortOrder: 1},
		{ID: "66b1f0a2c3d4e5f601234503", Name: "Archive", IsActive: false, SortOrder: 3},
	}
	for _, c := range cats {
		if err := store.CreateCategory(ctx, c); err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
	}
	// Golang 两道题，Python 一道
	questions := []*model.Question{
		{ID: "66b1f0a2c3d4e5f601234601", CategoryID: "66b1f0a2c3d4e5f601234501", Level: model.LevelBeginner},
		{ID: "66b1f0a2c3d4e5f601234602", CategoryID: "66b1f0a2c3d4e5f601234501", Level: model.LevelExpert},
		{ID: "66b1f0a2c3d4e5f601234603", CategoryID: "66b1f0a2c3d4e5f601234502", Level: model.LevelBeginner},
	}
	for _, q := range questions {
		if err := store.CreateQuestion(context.Background(), q); err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
	}
}

func TestList(t *testing.T) {
	store := memstore.New()
	seedCategories(t, store)
	mux := newMux(store)

	// 默认 sortOrder 升序
	rec := doReq(t, mux, "GET", "/v1/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeResp(t, rec)["data"].(map[string]any)
	cats := data["categories"].([]any)
	if len(cats) != 3 || cats[0].(map[string]any)["name"] != "Python" {
		t.Errorf("default order wrong: %v", cats)
	}

	// isActive 过滤
	rec = doReq(t, mux, "GET", "/v1/categories?isActive=false", nil)
	data = decodeResp(t, rec)["data"].(map[string]any)
	cats = data["categories"].([]any)
	if len(cats) != 1 || cats[0].(map[string]any)["name"] != "Archive" {
		t.Errorf("isActive filter wrong: %v", cats)
	}

	// 非法 isActive 拒绝
	rec = doReq(t, mux, "GET", "/v1/categories?isActive=maybe", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad isActive status = %d, want 400", rec.Code)
	}

	// questionCount 聚合排序
	rec = doReq(t, mux, "GET", "/v1/categories?sortBy=questionCount&sortOrder=desc", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("aggregate sort status = %d, body %s", rec.Code, rec.Body.String())
	}
	data = decodeResp(t, rec)["data"].(map[string]any)
	cats = data["categories"].([]any)
	first := cats[0].(map[string]any)
	if first["name"] != "Golang" || first["questionCount"].(float64) != 2 {
		t.Errorf("aggregate sort first = %v, want Golang/2", first)
	}
}

func TestActiveAndWithCounts(t *testing.T) {
	store := memstore.New()
	seedCategories(t, store)
	mux := newMux(store)

	rec := doReq(t, mux, "GET", "/v1/categories/active", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	items := decodeResp(t, rec)["data"].([]any)
	if len(items) != 2 || items[0].(map[string]any)["name"] != "Python" {
		t.Errorf("active = %v, want [Python Golang]", items)
	}

	rec = doReq(t, mux, "GET", "/v1/categories/with-counts", nil)
	items = decodeResp(t, rec)["data"].([]any)
	if len(items) != 3 {
		t.Fatalf("with-counts len = %d, want 3", len(items))
	}
	if items[1].(map[string]any)["questionCount"].(float64) != 2 {
		t.Errorf("Golang count = %v, want 2", items[1])
	}
}

func TestUpdateAndToggle(t *testing.T) {
	store := memstore.New()
	seedCategories(t, store)
	mux := newMux(store)
	ctx := context.Background()

	// 改名撞车 409
	rec := doReq(t, mux, "PUT", "/v1/categories/66b1f0a2c3d4e5f601234501", map[string]any{"name": "python"})
	if rec.Code != http.StatusConflict {
		t.Errorf("rename conflict status = %d, want 409", rec.Code)
	}

	// 自身同名（改描述）放行
	rec = doReq(t, mux, "PUT", "/v1/categories/66b1f0a2c3d4e5f601234501", map[string]any{
		"name":        "Golang",
		"description": "Go interview questions",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	got, _ := store.GetCategory(ctx, "66b1f0a2c3d4e5f601234501")
	if got.Description != "Go interview questions" {
		t.Errorf("Description = %q", got.Description)
	}

	// toggle 翻转并报告状态
	rec = doReq(t, mux, "PATCH", "/v1/categories/66b1f0a2c3d4e5f601234501/toggle-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResp(t, rec)
	if resp["message"] != "Category deactivated successfully" {
		t.Errorf("message = %v", resp["message"])
	}
	got, _ = store.GetCategory(ctx, "66b1f0a2c3d4e5f601234501")
	if got.IsActive {
		t.Error("IsActive should be flipped to false")
	}

	rec = doReq(t, mux, "PATCH", "/v1/categories/66b1f0a2c3d4e5f601234501/toggle-status", nil)
	if decodeResp(t, rec)["message"] != "Category activated successfully" {
		t.Errorf("second toggle message = %v", decodeResp(t, rec)["message"])
	}
}

func TestUpdateSortOrders(t *testing.T) {
	store := memstore.New()
	seedCategories(t, store)
	mux := newMux(store)

	rec := doReq(t, mux, "PUT", "/v1/categories/sort-order", map[string]any{
		"categories": []map[string]any{
			{"id": "66b1f0a2c3d4e5f601234501", "sortOrder": 1},
			{"id": "66b1f0a2c3d4e5f601234502", "sortOrder": 2},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got, _ := store.GetCategory(context.Background(), "66b1f0a2c3d4e5f601234501")
	if got.SortOrder != 1 {
		t.Errorf("SortOrder = %d, want 1", got.SortOrder)
	}

	// 空数组 400
	rec = doReq(t, mux, "PUT", "/v1/categories/sort-order", map[string]any{"categories": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty status = %d, want 400", rec.Code)
	}

	// 不存在的 id 404
	rec = doReq(t, mux, "PUT", "/v1/categories/sort-order", map[string]any{
		"categories": []map[string]any{{"id": "66b1f0a2c3d4e5f601234599", "sortOrder": 1}},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", rec.Code)
	}
}

func TestDelete_ReferentialGuard(t *testing.T) {
	store := memstore.New()
	seedCategories(t, store)
	mux := newMux(store)
	ctx := context.Background()

	// 有题目引用 409
	rec := doReq(t, mux, "DELETE", "/v1/categories/66b1f0a2c3d4e5f601234501", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("guarded delete status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}

	// 无引用可删除
	rec = doReq(t, mux, "DELETE", "/v1/categories/66b1f0a2c3d4e5f601234503", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	if _, err := store.GetCategory(ctx, "66b1f0a2c3d4e5f601234503"); err == nil {
		t.Error("category should be gone")
	}

	// 非法 id 400
	rec = doReq(t, mux, "DELETE", "/v1/categories/nope", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}
