package storage

import (
	"context"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	// GetUser 不存在时返回 ErrNotFound；Role 字段已 populate
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByMobile(ctx context.Context, mobile string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
	// ListUsers 返回当前页数据与过滤后的总数，Role 字段已 populate
	ListUsers(ctx context.Context, q *listquery.Query) ([]*model.User, int64, error)
	CountUsersByRole(ctx context.Context, roleID string) (int64, error)
}

// RoleStore 角色存储接口
type RoleStore interface {
	CreateRole(ctx context.Context, role *model.Role) error
	GetRole(ctx context.Context, id string) (*model.Role, error)
	// GetRoleByConst 按常量查找（大小写不敏感）
	GetRoleByConst(ctx context.Context, roleConst string) (*model.Role, error)
	UpdateRole(ctx context.Context, role *model.Role) error
	DeleteRole(ctx context.Context, id string) error
	ListRoles(ctx context.Context, q *listquery.Query) ([]*model.Role, int64, error)
	// ListRolesWithUserCounts $lookup users 统计每个角色的引用数
	ListRolesWithUserCounts(ctx context.Context) ([]*model.RoleWithUserCount, error)
}

// CategoryStore 分类存储接口
type CategoryStore interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	// GetCategoryByName 按名称查找（大小写不敏感）
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context, q *listquery.Query) ([]*model.Category, int64, error)
	// ListCategoriesByQuestionCount questionCount 排序的命名特例：
	// 该字段不存在于基础文档，必须 $lookup questions 后 $size 计数再排序
	ListCategoriesByQuestionCount(ctx context.Context, q *listquery.Query) ([]*model.CategoryWithQuestionCount, int64, error)
	ListActiveCategories(ctx context.Context) ([]*model.Category, error)
	ListCategoriesWithQuestionCounts(ctx context.Context) ([]*model.CategoryWithQuestionCount, error)
}

// QuestionStore 题目存储接口
type QuestionStore interface {
	CreateQuestion(ctx context.Context, question *model.Question) error
	GetQuestion(ctx context.Context, id string) (*model.Question, error)
	UpdateQuestion(ctx context.Context, question *model.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, q *listquery.Query) ([]*model.Question, int64, error)
	CountQuestionsByCategory(ctx context.Context, categoryID string) (int64, error)
	DistinctQuestionCategories(ctx context.Context) ([]string, error)
	DistinctQuestionLevels(ctx context.Context) ([]string, error)
	QuestionStats(ctx context.Context) (*model.QuestionStats, error)
}

// PersistentStore 持久化存储组合接口
//
// 引用完整性预检（删角色前数用户、删分类前数题目）与删除本身不在
// 同一事务中：两步之间插入的依赖记录是已接受、已记录的竞态窗口。
type PersistentStore interface {
	UserStore
	RoleStore
	CategoryStore
	QuestionStore
	Close() error
}
