package model

import (
	"regexp"
	"strings"
	"time"
)

// Role 角色
//
// RoleConst 为大写常量（如 ADMIN、CONTENT_EDITOR），唯一性按大小写不敏感处理：
// 写入前统一转大写，唯一索引使用 collation strength 2 兜底。
type Role struct {
	ID        string    `json:"id" bson:"_id"`
	RoleConst string    `json:"roleConst" bson:"role_const"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// RoleWithUserCount 角色及引用它的用户数（$lookup 聚合结果）
type RoleWithUserCount struct {
	Role      `bson:",inline"`
	UserCount int64 `json:"userCount" bson:"user_count"`
}

// roleConstPattern 角色常量格式：大写字母、数字、下划线
var roleConstPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// NormalizeRoleConst 规范化角色常量（去空白并转大写）
func NormalizeRoleConst(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidRoleConst 校验角色常量格式（调用方应先 Normalize）
func ValidRoleConst(s string) bool {
	return s != "" && len(s) <= 50 && roleConstPattern.MatchString(s)
}
