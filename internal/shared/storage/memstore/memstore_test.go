package memstore

import (
	"context"
	"net/url"
	"testing"
	"time"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage"
)

// 行为契约须与 mongostore 一致：唯一性、ErrNotFound/ErrDuplicate、列表查询语义

func TestUserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &model.User{ID: "u1", FullName: "Ada", Mobile: "9876543210"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	dup := &model.User{ID: "u2", FullName: "Bob", Mobile: "9876543210"}
	if err := s.CreateUser(ctx, dup); err != storage.ErrDuplicate {
		t.Errorf("duplicate mobile error = %v, want ErrDuplicate", err)
	}
	if _, err := s.GetUser(ctx, "missing"); err != storage.ErrNotFound {
		t.Errorf("GetUser(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRoleCaseInsensitiveConst(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateRole(ctx, &model.Role{ID: "r1", RoleConst: "ADMIN"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	got, err := s.GetRoleByConst(ctx, "admin")
	if err != nil {
		t.Fatalf("GetRoleByConst(lowercase): %v", err)
	}
	if got.ID != "r1" {
		t.Errorf("ID = %q, want r1", got.ID)
	}
	if err := s.CreateRole(ctx, &model.Role{ID: "r2", RoleConst: "Admin"}); err != storage.ErrDuplicate {
		t.Errorf("duplicate const error = %v, want ErrDuplicate", err)
	}
}

func TestListQuestionsQuery(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	questions := []*model.Question{
		{ID: "q1", Title: "Go channels", Answer: "...", CategoryID: "c1", Level: model.LevelBeginner, CreatedAt: base},
		{ID: "q2", Title: "Go interfaces", Answer: "...", CategoryID: "c1", Level: model.LevelAdvanced, CreatedAt: base.Add(time.Second)},
		{ID: "q3", Title: "HTTP caching", Answer: "...", CategoryID: "c2", Level: model.LevelBeginner, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, q := range questions {
		if err := s.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
	}

	cfg := listquery.Config{
		SearchFields: []string{"title", "answer"},
		MinSearchLen: 2,
		AllowedSorts: map[string]string{"title": "title", "createdAt": "created_at"},
		DefaultSort:  "createdAt",
	}

	// 搜索
	v := url.Values{}
	v.Set("search", "go ")
	q, err := listquery.Parse(v, cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	items, total, err := s.ListQuestions(ctx, q)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("search: total=%d len=%d, want 2/2", total, len(items))
	}

	// 过滤 + 默认排序（createdAt desc）
	q, _ = listquery.Parse(url.Values{}, cfg)
	q.AddFilter("level", string(model.LevelBeginner))
	items, total, err = s.ListQuestions(ctx, q)
	if err != nil {
		t.Fatalf("ListQuestions(filter): %v", err)
	}
	if total != 2 || items[0].ID != "q3" {
		t.Errorf("filter: total=%d first=%s, want 2/q3", total, items[0].ID)
	}

	// 分页
	v = url.Values{}
	v.Set("page", "2")
	v.Set("limit", "2")
	q, err = listquery.Parse(v, cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	items, total, err = s.ListQuestions(ctx, q)
	if err != nil {
		t.Fatalf("ListQuestions(page 2): %v", err)
	}
	if total != 3 || len(items) != 1 {
		t.Errorf("page 2: total=%d len=%d, want 3/1", total, len(items))
	}
}

func TestReferentialCounts(t *testing.T) {
	s := New()
	ctx := context.Background()

	roleID := "r1"
	if err := s.CreateRole(ctx, &model.Role{ID: roleID, RoleConst: "EDITOR"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := s.CreateUser(ctx, &model.User{ID: "u1", Mobile: "9000000001", RoleID: &roleID}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateCategory(ctx, &model.Category{ID: "c1", Name: "Go", IsActive: true}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if err := s.CreateQuestion(ctx, &model.Question{ID: "q1", CategoryID: "c1", Level: model.LevelBeginner}); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}

	if n, _ := s.CountUsersByRole(ctx, roleID); n != 1 {
		t.Errorf("CountUsersByRole = %d, want 1", n)
	}
	if n, _ := s.CountQuestionsByCategory(ctx, "c1"); n != 1 {
		t.Errorf("CountQuestionsByCategory = %d, want 1", n)
	}

	withCounts, err := s.ListCategoriesWithQuestionCounts(ctx)
	if err != nil {
		t.Fatalf("ListCategoriesWithQuestionCounts: %v", err)
	}
	if len(withCounts) != 1 || withCounts[0].QuestionCount != 1 {
		t.Errorf("withCounts = %+v, want one category with count 1", withCounts)
	}

	roles, err := s.ListRolesWithUserCounts(ctx)
	if err != nil {
		t.Fatalf("ListRolesWithUserCounts: %v", err)
	}
	if len(roles) != 1 || roles[0].UserCount != 1 {
		t.Errorf("roles = %+v, want one role with count 1", roles)
	}
}

func TestQuestionStats(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, lvl := range []model.QuestionLevel{model.LevelBeginner, model.LevelBeginner, model.LevelExpert} {
		q := &model.Question{ID: string(rune('a' + i)), CategoryID: "c1", Level: lvl}
		if err := s.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
	}

	stats, err := s.QuestionStats(ctx)
	if err != nil {
		t.Fatalf("QuestionStats: %v", err)
	}
	if stats.TotalQuestions != 3 {
		t.Errorf("TotalQuestions = %d, want 3", stats.TotalQuestions)
	}
	if len(stats.LevelStats) != 2 || stats.LevelStats[0].Key != string(model.LevelBeginner) || stats.LevelStats[0].Count != 2 {
		t.Errorf("LevelStats = %+v, want Beginner/2 first", stats.LevelStats)
	}
}
