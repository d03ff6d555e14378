package model

import "time"

// QuestionLevel 题目难度等级
type QuestionLevel string

const (
	LevelBeginner     QuestionLevel = "Beginner"
	LevelIntermediate QuestionLevel = "Intermediate"
	LevelAdvanced     QuestionLevel = "Advanced"
	LevelExpert       QuestionLevel = "Expert"
)

// ValidLevel 校验难度等级取值
func ValidLevel(l QuestionLevel) bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

// Question 面试题
//
// CategoryID 弱引用 Category：删除分类前需确认题目计数为零，不做级联。
type Question struct {
	ID         string        `json:"id" bson:"_id"`
	Title      string        `json:"title" bson:"title"`
	Answer     string        `json:"answer" bson:"answer"`
	CategoryID string        `json:"category" bson:"category_id"`
	Level      QuestionLevel `json:"level" bson:"level"`
	CreatedAt  time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time     `json:"updatedAt" bson:"updated_at"`
}

// BucketCount 按字段分组的计数（stats 聚合结果）
type BucketCount struct {
	Key   string `json:"_id" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// QuestionStats 题库统计
type QuestionStats struct {
	TotalQuestions int64         `json:"totalQuestions"`
	CategoryStats  []BucketCount `json:"categoryStats"`
	LevelStats     []BucketCount `json:"levelStats"`
}
