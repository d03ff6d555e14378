package model

import "time"

// User 用户（登录身份）
//
// Mobile 是登录标识，全局唯一。
// PasswordHash 只写不读：创建/更新时接受明文密码并哈希存储，响应中永不返回。
type User struct {
	ID           string    `json:"id" bson:"_id"`
	FullName     string    `json:"fullName" bson:"full_name"`
	Mobile       string    `json:"mobile" bson:"mobile"`
	PasswordHash string    `json:"-" bson:"password_hash"` // never expose in JSON
	RoleID       *string   `json:"roleId,omitempty" bson:"role_id,omitempty"`
	Role         *RoleRef  `json:"role,omitempty" bson:"-"` // populated 展示用，不落库
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// RoleRef 用户响应中内嵌的角色摘要
type RoleRef struct {
	ID        string `json:"id" bson:"_id"`
	RoleConst string `json:"roleConst" bson:"role_const"`
}
