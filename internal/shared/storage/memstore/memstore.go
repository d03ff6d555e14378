// Package memstore 内存实现的 PersistentStore
//
// 语义与 mongostore 对齐（唯一性、ErrNotFound/ErrDuplicate、列表查询），
// 供 handler 测试与本地快速验证使用，不提供持久化。
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"
	"questions-admin/internal/shared/storage"
)

// Store 内存存储，全部方法并发安全
type Store struct {
	mu         sync.RWMutex
	users      map[string]*model.User
	roles      map[string]*model.Role
	categories map[string]*model.Category
	questions  map[string]*model.Question
}

var _ storage.PersistentStore = (*Store)(nil)

// New 创建空的内存存储
func New() *Store {
	return &Store{
		users:      map[string]*model.User{},
		roles:      map[string]*model.Role{},
		categories: map[string]*model.Category{},
		questions:  map[string]*model.Question{},
	}
}

// Close 实现 PersistentStore
func (s *Store) Close() error { return nil }

// ==================== 用户 ====================

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Mobile == user.Mobile {
			return storage.ErrDuplicate
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.populateRole(u), nil
}

func (s *Store) GetUserByMobile(_ context.Context, mobile string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Mobile == mobile {
			return s.populateRole(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	for id, u := range s.users {
		if id != user.ID && u.Mobile == user.Mobile {
			return storage.ErrDuplicate
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) ListUsers(_ context.Context, q *listquery.Query) ([]*model.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		if !matchFilters(q.Filters, map[string]string{
			"role_id": deref(u.RoleID),
		}) {
			continue
		}
		if !matchSearch(q.Search, u.FullName, u.Mobile) {
			continue
		}
		matched = append(matched, s.populateRole(u))
	}

	sortSlice(matched, q, func(u *model.User) (string, string) {
		switch q.SortField {
		case "full_name":
			return strings.ToLower(u.FullName), u.ID
		case "mobile":
			return u.Mobile, u.ID
		case "updated_at":
			return u.UpdatedAt.Format(timeKey), u.ID
		default:
			return u.CreatedAt.Format(timeKey), u.ID
		}
	})
	total := int64(len(matched))
	return page(matched, q), total, nil
}

func (s *Store) CountUsersByRole(_ context.Context, roleID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.users {
		if u.RoleID != nil && *u.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

// populateRole 调用方须持有读锁
func (s *Store) populateRole(u *model.User) *model.User {
	cp := *u
	if cp.RoleID != nil {
		if r, ok := s.roles[*cp.RoleID]; ok {
			cp.Role = &model.RoleRef{ID: r.ID, RoleConst: r.RoleConst}
		}
	}
	return &cp
}

// ==================== 角色 ====================

func (s *Store) CreateRole(_ context.Context, role *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if strings.EqualFold(r.RoleConst, role.RoleConst) {
			return storage.ErrDuplicate
		}
	}
	cp := *role
	s.roles[role.ID] = &cp
	return nil
}

func (s *Store) GetRole(_ context.Context, id string) (*model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetRoleByConst(_ context.Context, roleConst string) (*model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if strings.EqualFold(r.RoleConst, roleConst) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateRole(_ context.Context, role *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.ID]; !ok {
		return storage.ErrNotFound
	}
	for id, r := range s.roles {
		if id != role.ID && strings.EqualFold(r.RoleConst, role.RoleConst) {
			return storage.ErrDuplicate
		}
	}
	cp := *role
	s.roles[role.ID] = &cp
	return nil
}

func (s *Store) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.roles, id)
	return nil
}

func (s *Store) ListRoles(_ context.Context, q *listquery.Query) ([]*model.Role, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if !matchSearch(q.Search, r.RoleConst) {
			continue
		}
		cp := *r
		matched = append(matched, &cp)
	}
	sortSlice(matched, q, func(r *model.Role) (string, string) {
		switch q.SortField {
		case "role_const":
			return r.RoleConst, r.ID
		default:
			return r.CreatedAt.Format(timeKey), r.ID
		}
	})
	total := int64(len(matched))
	return page(matched, q), total, nil
}

func (s *Store) ListRolesWithUserCounts(_ context.Context) ([]*model.RoleWithUserCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.RoleWithUserCount, 0, len(s.roles))
	for _, r := range s.roles {
		var n int64
		for _, u := range s.users {
			if u.RoleID != nil && *u.RoleID == r.ID {
				n++
			}
		}
		out = append(out, &model.RoleWithUserCount{Role: *r, UserCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleConst < out[j].RoleConst })
	return out, nil
}

// ==================== 分类 ====================

func (s *Store) CreateCategory(_ context.Context, category *model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return storage.ErrDuplicate
		}
	}
	cp := *category
	s.categories[category.ID] = &cp
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetCategoryByName(_ context.Context, name string) (*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateCategory(_ context.Context, category *model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category.ID]; !ok {
		return storage.ErrNotFound
	}
	for id, c := range s.categories {
		if id != category.ID && strings.EqualFold(c.Name, category.Name) {
			return storage.ErrDuplicate
		}
	}
	cp := *category
	s.categories[category.ID] = &cp
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context, q *listquery.Query) ([]*model.Category, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filterCategories(q)
	sortSlice(matched, q, func(c *model.Category) (string, string) {
		switch q.SortField {
		case "name":
			return strings.ToLower(c.Name), c.ID
		case "sort_order":
			return intKey(c.SortOrder), c.ID
		case "updated_at":
			return c.UpdatedAt.Format(timeKey), c.ID
		default:
			return c.CreatedAt.Format(timeKey), c.ID
		}
	})
	total := int64(len(matched))
	return page(matched, q), total, nil
}

func (s *Store) ListCategoriesByQuestionCount(_ context.Context, q *listquery.Query) ([]*model.CategoryWithQuestionCount, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	base := s.filterCategories(q)
	matched := make([]*model.CategoryWithQuestionCount, 0, len(base))
	for _, c := range base {
		matched = append(matched, &model.CategoryWithQuestionCount{
			Category:      *c,
			QuestionCount: s.countQuestions(c.ID),
		})
	}
	sortSlice(matched, q, func(c *model.CategoryWithQuestionCount) (string, string) {
		return intKey(int(c.QuestionCount)), c.ID
	})
	total := int64(len(matched))
	return page(matched, q), total, nil
}

func (s *Store) ListActiveCategories(_ context.Context) ([]*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListCategoriesWithQuestionCounts(_ context.Context) ([]*model.CategoryWithQuestionCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.CategoryWithQuestionCount, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, &model.CategoryWithQuestionCount{
			Category:      *c,
			QuestionCount: s.countQuestions(c.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// filterCategories 调用方须持有读锁
func (s *Store) filterCategories(q *listquery.Query) []*model.Category {
	matched := make([]*model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if v, ok := q.Filters["is_active"]; ok {
			if b, _ := v.(bool); b != c.IsActive {
				continue
			}
		}
		if !matchSearch(q.Search, c.Name, c.Description) {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	return matched
}

// countQuestions 调用方须持有读锁
func (s *Store) countQuestions(categoryID string) int64 {
	var n int64
	for _, qu := range s.questions {
		if qu.CategoryID == categoryID {
			n++
		}
	}
	return n
}

// ==================== 题目 ====================

func (s *Store) CreateQuestion(_ context.Context, question *model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *question
	s.questions[question.ID] = &cp
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (*model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qu, ok := s.questions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *qu
	return &cp, nil
}

func (s *Store) UpdateQuestion(_ context.Context, question *model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *question
	s.questions[question.ID] = &cp
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) ListQuestions(_ context.Context, q *listquery.Query) ([]*model.Question, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.Question, 0, len(s.questions))
	for _, qu := range s.questions {
		if !matchFilters(q.Filters, map[string]string{
			"category_id": qu.CategoryID,
			"level":       string(qu.Level),
		}) {
			continue
		}
		if !matchSearch(q.Search, qu.Title, qu.Answer) {
			continue
		}
		cp := *qu
		matched = append(matched, &cp)
	}
	sortSlice(matched, q, func(qu *model.Question) (string, string) {
		switch q.SortField {
		case "title":
			return strings.ToLower(qu.Title), qu.ID
		case "level":
			return string(qu.Level), qu.ID
		case "updated_at":
			return qu.UpdatedAt.Format(timeKey), qu.ID
		default:
			return qu.CreatedAt.Format(timeKey), qu.ID
		}
	})
	total := int64(len(matched))
	return page(matched, q), total, nil
}

func (s *Store) CountQuestionsByCategory(_ context.Context, categoryID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countQuestions(categoryID), nil
}

func (s *Store) DistinctQuestionCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.distinct(func(q *model.Question) string { return q.CategoryID }), nil
}

func (s *Store) DistinctQuestionLevels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.distinct(func(q *model.Question) string { return string(q.Level) }), nil
}

func (s *Store) QuestionStats(_ context.Context) (*model.QuestionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := map[string]int64{}
	byLevel := map[string]int64{}
	for _, qu := range s.questions {
		byCategory[qu.CategoryID]++
		byLevel[string(qu.Level)]++
	}
	return &model.QuestionStats{
		TotalQuestions: int64(len(s.questions)),
		CategoryStats:  buckets(byCategory),
		LevelStats:     buckets(byLevel),
	}, nil
}

// distinct 调用方须持有读锁
func (s *Store) distinct(key func(*model.Question) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, qu := range s.questions {
		k := key(qu)
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ==================== 查询求值辅助 ====================

const timeKey = "2006-01-02T15:04:05.000000000"

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// matchFilters 精确匹配条件求值，fields 为该资源支持过滤的 bson 字段取值
func matchFilters(filters map[string]any, fields map[string]string) bool {
	for k, want := range filters {
		got, ok := fields[k]
		if !ok {
			return false
		}
		if w, ok := want.(string); !ok || w != got {
			return false
		}
	}
	return true
}

// matchSearch 大小写不敏感子串匹配，多字段 OR
func matchSearch(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// intKey 定宽十进制编码，使整数可按字符串比较（支持负数）
func intKey(n int) string {
	const width = 12
	neg := n < 0
	if neg {
		n = -n
	}
	digits := []byte{}
	for i := 0; i < width; i++ {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		// 负数排在正数前，且绝对值越大越靠前
		for i, d := range digits {
			digits[i] = byte('9' - (d - '0'))
		}
		return "!" + string(digits)
	}
	return "0" + string(digits)
}

// sortSlice 按 (主键, id) 稳定排序，方向跟随查询
func sortSlice[T any](items []T, q *listquery.Query, key func(T) (string, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ki, ti := key(items[i])
		kj, tj := key(items[j])
		if ki != kj {
			if q.SortAsc {
				return ki < kj
			}
			return ki > kj
		}
		return ti < tj
	})
}

// page 应用 skip/limit
func page[T any](items []T, q *listquery.Query) []T {
	if q.Skip >= len(items) {
		return []T{}
	}
	end := q.Skip + q.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[q.Skip:end]
}

// buckets map 转排序后的桶计数
func buckets(m map[string]int64) []model.BucketCount {
	out := make([]model.BucketCount, 0, len(m))
	for k, v := range m {
		out = append(out, model.BucketCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
