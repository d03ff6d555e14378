// Package storage 定义存储层领域错误与持久化接口
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// 驱动实现（mongostore/memstore）负责将底层错误转换为这些领域错误。
package storage

import "errors"

var (
	// ErrNotFound 实体不存在
	// 替代 mongo.ErrNoDocuments
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突
	//
	// handler 的"先查再写"只负责产出友好错误信息，唯一索引才是权威保障：
	// 并发写竞态穿过预检后，插入会以此错误返回，handler 统一译为 409。
	ErrDuplicate = errors.New("duplicate: entity already exists")
)
