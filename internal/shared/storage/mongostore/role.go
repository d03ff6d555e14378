package mongostore

import (
	"context"
	"time"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// RoleStore
// ============================================================================

func (s *Store) CreateRole(ctx context.Context, role *model.Role) error {
	return insertOne(ctx, s.col(ColRoles), role)
}

func (s *Store) GetRole(ctx context.Context, id string) (*model.Role, error) {
	return findOne[model.Role](ctx, s.col(ColRoles), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetRoleByConst(ctx context.Context, roleConst string) (*model.Role, error) {
	// collation 与唯一索引保持一致，查找同样大小写不敏感
	opts := options.FindOne().SetCollation(&caseInsensitive)
	return findOne[model.Role](ctx, s.col(ColRoles),
		bson.D{{Key: "role_const", Value: roleConst}}, opts)
}

func (s *Store) UpdateRole(ctx context.Context, role *model.Role) error {
	return updateFields(ctx, s.col(ColRoles), role.ID, bson.D{
		{Key: "role_const", Value: role.RoleConst},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColRoles), id)
}

func (s *Store) ListRoles(ctx context.Context, q *listquery.Query) ([]*model.Role, int64, error) {
	return listFind[model.Role](ctx, s.col(ColRoles), q)
}

// ListRolesWithUserCounts $lookup users 统计每个角色的引用数，按常量排序
func (s *Store) ListRolesWithUserCounts(ctx context.Context) ([]*model.RoleWithUserCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: ColUsers},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "role_id"},
			{Key: "as", Value: "users"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "user_count", Value: bson.D{{Key: "$size", Value: "$users"}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "users", Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "role_const", Value: 1}}}},
	}
	return aggregate[model.RoleWithUserCount](ctx, s.col(ColRoles), pipeline)
}
