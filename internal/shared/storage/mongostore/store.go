// Package mongostore 实现基于 MongoDB 的 PersistentStore
//
// 使用 mongo-go-driver v2，通过 bson tag 实现 model 结构体的序列化/反序列化。
// 所有 Collection 名称和索引在 ensureIndexes 中统一管理。
package mongostore

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection 名称常量
const (
	ColUsers      = "users"
	ColRoles      = "roles"
	ColCategories = "categories"
	ColQuestions  = "questions"
)

// caseInsensitive 大小写不敏感 collation，用于唯一索引与按名查找
//
// strength 2 表示忽略大小写但区分重音，与写入前的应用层规范化互为兜底
var caseInsensitive = options.Collation{Locale: "en", Strength: 2}

// Store 实现 storage.PersistentStore 接口的 MongoDB 驱动
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore 创建 MongoDB 存储实例
//
// uri: MongoDB 连接 URI，如 "mongodb://localhost:27017"
// dbName: 数据库名称，如 "questions_admin"
func NewStore(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	// 验证连接
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{client: client, db: db}

	// 创建索引
	if err := s.ensureIndexes(ctx); err != nil {
		log.Printf("WARNING: mongostore: ensure indexes failed: %v", err)
	}

	return s, nil
}

// Close 关闭 MongoDB 连接
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// col 获取指定 Collection
func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// ensureIndexes 创建所有必要的索引
//
// 唯一索引是写入唯一性的权威保障：handler 的友好预检存在并发竞态，
// 穿过预检的写入在这里以 duplicate key 失败。
func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col             string
		keys            bson.D
		unique          bool
		caseInsensitive bool
	}

	indexes := []idx{
		// users
		{ColUsers, bson.D{{Key: "mobile", Value: 1}}, true, false},
		{ColUsers, bson.D{{Key: "role_id", Value: 1}}, false, false},
		{ColUsers, bson.D{{Key: "created_at", Value: -1}}, false, false},

		// roles：常量唯一性大小写不敏感
		{ColRoles, bson.D{{Key: "role_const", Value: 1}}, true, true},

		// categories：名称唯一性大小写不敏感
		{ColCategories, bson.D{{Key: "name", Value: 1}}, true, true},
		{ColCategories, bson.D{{Key: "is_active", Value: 1}, {Key: "sort_order", Value: 1}}, false, false},

		// questions
		{ColQuestions, bson.D{{Key: "category_id", Value: 1}}, false, false},
		{ColQuestions, bson.D{{Key: "level", Value: 1}}, false, false},
		{ColQuestions, bson.D{{Key: "created_at", Value: -1}}, false, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		opts := options.Index()
		if i.unique {
			opts = opts.SetUnique(true)
		}
		if i.caseInsensitive {
			opts = opts.SetCollation(&caseInsensitive)
		}
		if i.unique || i.caseInsensitive {
			model.Options = opts
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
