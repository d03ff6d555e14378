package mongostore

import (
	"context"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, err
	}
	if err := s.populateRoles(ctx, []*model.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByMobile(ctx context.Context, mobile string) (*model.User, error) {
	u, err := findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "mobile", Value: mobile}})
	if err != nil {
		return nil, err
	}
	if err := s.populateRoles(ctx, []*model.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	return replaceByID(ctx, s.col(ColUsers), user.ID, user)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColUsers), id)
}

func (s *Store) ListUsers(ctx context.Context, q *listquery.Query) ([]*model.User, int64, error) {
	users, total, err := listFind[model.User](ctx, s.col(ColUsers), q)
	if err != nil {
		return nil, 0, err
	}
	if err := s.populateRoles(ctx, users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) CountUsersByRole(ctx context.Context, roleID string) (int64, error) {
	n, err := s.col(ColUsers).CountDocuments(ctx, bson.D{{Key: "role_id", Value: roleID}})
	return n, wrapError(err)
}

// populateRoles 批量填充 Role 摘要（一次 $in 查询，避免 N+1）
func (s *Store) populateRoles(ctx context.Context, users []*model.User) error {
	seen := map[string]bool{}
	ids := bson.A{}
	for _, u := range users {
		if u.RoleID != nil && !seen[*u.RoleID] {
			seen[*u.RoleID] = true
			ids = append(ids, *u.RoleID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	roles, err := findMany[model.Role](ctx, s.col(ColRoles),
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return err
	}
	byID := make(map[string]*model.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	for _, u := range users {
		if u.RoleID == nil {
			continue
		}
		// 角色已被删除时保留 roleId、不填充摘要
		if r, ok := byID[*u.RoleID]; ok {
			u.Role = &model.RoleRef{ID: r.ID, RoleConst: r.RoleConst}
		}
	}
	return nil
}
