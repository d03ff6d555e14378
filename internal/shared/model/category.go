package model

import "time"

// 分类默认值
const (
	DefaultCategoryColor = "#3B82F6"
	DefaultCategoryIcon  = "📚"
)

// Category 题目分类
//
// Name 唯一性按大小写不敏感处理。删除前必须确认没有题目引用该分类。
type Category struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Color       string    `json:"color" bson:"color"`
	Icon        string    `json:"icon" bson:"icon"`
	IsActive    bool      `json:"isActive" bson:"is_active"`
	SortOrder   int       `json:"sortOrder" bson:"sort_order"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// CategoryWithQuestionCount 分类及其题目数（$lookup 聚合结果）
type CategoryWithQuestionCount struct {
	Category      `bson:",inline"`
	QuestionCount int64 `json:"questionCount" bson:"question_count"`
}

// SortOrderUpdate 批量排序更新项
type SortOrderUpdate struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}
