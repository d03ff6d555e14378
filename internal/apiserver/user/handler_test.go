package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"questions-admin/internal/apiserver/auth"
	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage/memstore"
)

func newTestHandler() (*Handler, *memstore.Store) {
	store := memstore.New()
	return NewHandler(store), store
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func doReq(t *testing.T, mux *http.ServeMux, method, target string, body any, ctxUser *model.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if ctxUser != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), ctxUser))
	}
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

func seedUsers(t *testing.T, store *memstore.Store, roleID string) {
	t.Helper()
	ctx := context.Background()
	if err := store.CreateRole(ctx, &model.Role{ID: roleID, RoleConst: "EDITOR"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	users := []*model.User{
		{ID: "66b1f0a2c3d4e5f601234501", FullName: "Alice Zhang", Mobile: "9000000001", RoleID: &roleID},
		{ID: "66b1f0a2c3d4e5f601234502", FullName: "Bob Li", Mobile: "9000000002"},
		{ID: "66b1f0a2c3d4e5f601234503", FullName: "Carol Wang", Mobile: "9000000003"},
	}
	for _, u := range users {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
}

func TestList(t *testing.T) {
	h, store := newTestHandler()
	roleID := "66b1f0a2c3d4e5f601234500"
	seedUsers(t, store, roleID)
	mux := newMux(h)

	// 默认列表
	rec := doReq(t, mux, "GET", "/v1/auth/users", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResp(t, rec)
	data := resp["data"].(map[string]any)
	if n := len(data["users"].([]any)); n != 3 {
		t.Errorf("users len = %d, want 3", n)
	}
	pg := data["pagination"].(map[string]any)
	if pg["totalCount"].(float64) != 3 || pg["currentPage"].(float64) != 1 {
		t.Errorf("pagination = %v", pg)
	}

	// 搜索
	rec = doReq(t, mux, "GET", "/v1/auth/users?search=alice", nil, nil)
	data = decodeResp(t, rec)["data"].(map[string]any)
	if n := len(data["users"].([]any)); n != 1 {
		t.Errorf("search users len = %d, want 1", n)
	}

	// roleId 过滤 + role populate
	rec = doReq(t, mux, "GET", "/v1/auth/users?roleId="+roleID, nil, nil)
	data = decodeResp(t, rec)["data"].(map[string]any)
	users := data["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("role filter users len = %d, want 1", len(users))
	}
	role := users[0].(map[string]any)["role"].(map[string]any)
	if role["roleConst"] != "EDITOR" {
		t.Errorf("populated role = %v", role)
	}

	// 非法 roleId
	rec = doReq(t, mux, "GET", "/v1/auth/users?roleId=notanid", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad roleId status = %d, want 400", rec.Code)
	}

	// 白名单外排序字段拒绝
	rec = doReq(t, mux, "GET", "/v1/auth/users?sortBy=passwordHash", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad sortBy status = %d, want 400", rec.Code)
	}
}

func TestListByRole(t *testing.T) {
	h, store := newTestHandler()
	roleID := "66b1f0a2c3d4e5f601234500"
	seedUsers(t, store, roleID)
	mux := newMux(h)

	rec := doReq(t, mux, "GET", "/v1/auth/users/role/"+roleID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeResp(t, rec)["data"].(map[string]any)
	if n := len(data["users"].([]any)); n != 1 {
		t.Errorf("users len = %d, want 1", n)
	}

	// 角色不存在 404
	rec = doReq(t, mux, "GET", "/v1/auth/users/role/66b1f0a2c3d4e5f601234599", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing role status = %d, want 404", rec.Code)
	}

	// 非法 id 400
	rec = doReq(t, mux, "GET", "/v1/auth/users/role/short", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad role id status = %d, want 400", rec.Code)
	}
}

func TestCreate(t *testing.T) {
	h, store := newTestHandler()
	mux := newMux(h)

	rec := doReq(t, mux, "POST", "/v1/auth/users", map[string]any{
		"fullName": "Dora Chen",
		"mobile":   "9111111111",
		"password": "secret1",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	user := decodeResp(t, rec)["data"].(map[string]any)
	if _, hasHash := user["passwordHash"]; hasHash {
		t.Error("password hash leaked in response")
	}

	stored, err := store.GetUserByMobile(context.Background(), "9111111111")
	if err != nil {
		t.Fatalf("GetUserByMobile: %v", err)
	}
	if !auth.CheckPassword("secret1", stored.PasswordHash) {
		t.Error("password must be stored hashed and verifiable")
	}

	// 重复手机号 409
	rec = doReq(t, mux, "POST", "/v1/auth/users", map[string]any{
		"fullName": "Other",
		"mobile":   "9111111111",
		"password": "secret1",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	// 不存在的角色 400
	rec = doReq(t, mux, "POST", "/v1/auth/users", map[string]any{
		"fullName": "Eve",
		"mobile":   "9222222222",
		"password": "secret1",
		"roleId":   "66b1f0a2c3d4e5f601234599",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad role status = %d, want 400", rec.Code)
	}
}

func TestGetUpdateDelete(t *testing.T) {
	h, store := newTestHandler()
	roleID := "66b1f0a2c3d4e5f601234500"
	seedUsers(t, store, roleID)
	mux := newMux(h)

	// Get
	rec := doReq(t, mux, "GET", "/v1/auth/users/66b1f0a2c3d4e5f601234502", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Get 非法 id / 不存在
	rec = doReq(t, mux, "GET", "/v1/auth/users/xyz", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	rec = doReq(t, mux, "GET", "/v1/auth/users/66b1f0a2c3d4e5f601234599", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}

	// Update 部分更新 + 角色指派
	rec = doReq(t, mux, "PUT", "/v1/auth/users/66b1f0a2c3d4e5f601234502", map[string]any{
		"fullName": "Bob Lee",
		"roleId":   roleID,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	stored, _ := store.GetUser(context.Background(), "66b1f0a2c3d4e5f601234502")
	if stored.FullName != "Bob Lee" || stored.RoleID == nil || *stored.RoleID != roleID {
		t.Errorf("after update: %+v", stored)
	}

	// Update 手机号冲突 409
	rec = doReq(t, mux, "PUT", "/v1/auth/users/66b1f0a2c3d4e5f601234502", map[string]any{
		"mobile": "9000000001",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("mobile conflict status = %d, want 409", rec.Code)
	}

	// 自删保护 400
	self := &model.User{ID: "66b1f0a2c3d4e5f601234503"}
	rec = doReq(t, mux, "DELETE", "/v1/auth/users/66b1f0a2c3d4e5f601234503", nil, self)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self delete status = %d, want 400", rec.Code)
	}

	// 正常删除
	rec = doReq(t, mux, "DELETE", "/v1/auth/users/66b1f0a2c3d4e5f601234502", nil, self)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doReq(t, mux, "DELETE", "/v1/auth/users/66b1f0a2c3d4e5f601234502", nil, self)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete again status = %d, want 404", rec.Code)
	}
}
