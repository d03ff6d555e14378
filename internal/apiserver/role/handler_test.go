package role

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

func TestCreate(t *testing.T) {
	store := memstore.New()
	mux := newMux(store)

	// 小写输入写入前转大写
	rec := doReq(t, mux, "POST", "/v1/roles", map[string]any{"roleConst": "content_editor"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeResp(t, rec)["data"].(map[string]any)
	if data["roleConst"] != "CONTENT_EDITOR" {
		t.Errorf("roleConst = %v, want CONTENT_EDITOR", data["roleConst"])
	}

	// 大小写不同视为重复
	rec = doReq(t, mux, "POST", "/v1/roles", map[string]any{"roleConst": "Content_Editor"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	// 非法字符
	rec = doReq(t, mux, "POST", "/v1/roles", map[string]any{"roleConst": "HAS SPACE"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad const status = %d, want 400", rec.Code)
	}

	// 缺少字段
	rec = doReq(t, mux, "POST", "/v1/roles", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing const status = %d, want 400", rec.Code)
	}
}

func TestGetByConst(t *testing.T) {
	store := memstore.New()
	if err := store.CreateRole(context.Background(), &model.Role{ID: "66b1f0a2c3d4e5f601234500", RoleConst: "ADMIN"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	mux := newMux(store)

	rec := doReq(t, mux, "GET", "/v1/roles/const/admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeResp(t, rec)["data"].(map[string]any)
	if data["roleConst"] != "ADMIN" {
		t.Errorf("roleConst = %v, want ADMIN", data["roleConst"])
	}

	rec = doReq(t, mux, "GET", "/v1/roles/const/NOPE", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}

func TestListAndCounts(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	admin := &model.Role{ID: "66b1f0a2c3d4e5f601234500", RoleConst: "ADMIN"}
	viewer := &model.Role{ID: "66b1f0a2c3d4e5f601234501", RoleConst: "VIEWER"}
	for _, r := range []*model.Role{admin, viewer} {
		if err := store.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}
	if err := store.CreateUser(ctx, &model.User{ID: "66b1f0a2c3d4e5f601234502", Mobile: "9000000001", RoleID: &admin.ID}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	mux := newMux(store)

	// 默认按常量升序
	rec := doReq(t, mux, "GET", "/v1/roles", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeResp(t, rec)["data"].(map[string]any)
	roles := data["roles"].([]any)
	if len(roles) != 2 || roles[0].(map[string]any)["roleConst"] != "ADMIN" {
		t.Errorf("roles = %v", roles)
	}

	// with-counts
	rec = doReq(t, mux, "GET", "/v1/roles/with-counts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("with-counts status = %d", rec.Code)
	}
	counts := decodeResp(t, rec)["data"].([]any)
	if counts[0].(map[string]any)["userCount"].(float64) != 1 {
		t.Errorf("ADMIN userCount = %v, want 1", counts[0])
	}
	if counts[1].(map[string]any)["userCount"].(float64) != 0 {
		t.Errorf("VIEWER userCount = %v, want 0", counts[1])
	}
}

func TestUpdateAndBulk(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	r1 := &model.Role{ID: "66b1f0a2c3d4e5f601234500", RoleConst: "ALPHA"}
	r2 := &model.Role{ID: "66b1f0a2c3d4e5f601234501", RoleConst: "BETA"}
	for _, r := range []*model.Role{r1, r2} {
		if err := store.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}
	mux := newMux(store)

	// 常量被他人占用 409
	rec := doReq(t, mux, "PUT", "/v1/roles/"+r1.ID, map[string]any{"roleConst": "beta"})
	if rec.Code != http.StatusConflict {
		t.Errorf("conflict status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}

	// 正常更新
	rec = doReq(t, mux, "PUT", "/v1/roles/"+r1.ID, map[string]any{"roleConst": "gamma"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	got, _ := store.GetRole(ctx, r1.ID)
	if got.RoleConst != "GAMMA" {
		t.Errorf("RoleConst = %q, want GAMMA", got.RoleConst)
	}

	// 批量更新
	rec = doReq(t, mux, "PUT", "/v1/roles/bulk-update", map[string]any{
		"roles": []map[string]any{
			{"id": r1.ID, "roleConst": "one"},
			{"id": r2.ID, "roleConst": "two"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk status = %d, body %s", rec.Code, rec.Body.String())
	}
	got, _ = store.GetRole(ctx, r2.ID)
	if got.RoleConst != "TWO" {
		t.Errorf("RoleConst = %q, want TWO", got.RoleConst)
	}

	// 空数组拒绝
	rec = doReq(t, mux, "PUT", "/v1/roles/bulk-update", map[string]any{"roles": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty bulk status = %d, want 400", rec.Code)
	}

	// 不存在的 id 404
	rec = doReq(t, mux, "PUT", "/v1/roles/bulk-update", map[string]any{
		"roles": []map[string]any{{"id": "66b1f0a2c3d4e5f601234599", "roleConst": "X1"}},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("bulk missing status = %d, want 404", rec.Code)
	}
}

func TestDelete_ReferentialGuard(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	role := &model.Role{ID: "66b1f0a2c3d4e5f601234500", RoleConst: "EDITOR"}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := store.CreateUser(ctx, &model.User{ID: "66b1f0a2c3d4e5f601234501", Mobile: "9000000001", RoleID: &role.ID}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	mux := newMux(store)

	// 有用户引用时 409，信息带计数
	rec := doReq(t, mux, "DELETE", "/v1/roles/"+role.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("guarded delete status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
	if msg := decodeResp(t, rec)["message"].(string); msg == "" {
		t.Error("conflict message should mention assigned users")
	}

	// 解除引用后可删除
	if err := store.DeleteUser(ctx, "66b1f0a2c3d4e5f601234501"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	rec = doReq(t, mux, "DELETE", "/v1/roles/"+role.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doReq(t, mux, "DELETE", "/v1/roles/"+role.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete again status = %d, want 404", rec.Code)
	}
}
