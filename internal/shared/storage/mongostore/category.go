package mongostore

import (
	"context"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// CategoryStore
// ============================================================================

func (s *Store) CreateCategory(ctx context.Context, category *model.Category) error {
	return insertOne(ctx, s.col(ColCategories), category)
}

func (s *Store) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	return findOne[model.Category](ctx, s.col(ColCategories), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	opts := options.FindOne().SetCollation(&caseInsensitive)
	return findOne[model.Category](ctx, s.col(ColCategories),
		bson.D{{Key: "name", Value: name}}, opts)
}

func (s *Store) UpdateCategory(ctx context.Context, category *model.Category) error {
	return replaceByID(ctx, s.col(ColCategories), category.ID, category)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColCategories), id)
}

func (s *Store) ListCategories(ctx context.Context, q *listquery.Query) ([]*model.Category, int64, error) {
	return listFind[model.Category](ctx, s.col(ColCategories), q)
}

// ListCategoriesByQuestionCount 按题目数排序的列表查询
//
// question_count 不存在于基础文档，必须 $lookup questions 后 $size 计数，
// 因此该排序字段走聚合管道而不是普通 Find。过滤与分页语义和 ListCategories 一致。
func (s *Store) ListCategoriesByQuestionCount(ctx context.Context, q *listquery.Query) ([]*model.CategoryWithQuestionCount, int64, error) {
	filter := q.FilterDoc()

	total, err := s.col(ColCategories).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError(err)
	}

	dir := -1
	if q.SortAsc {
		dir = 1
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
	}
	pipeline = append(pipeline, questionCountStages()...)
	pipeline = append(pipeline,
		// _id 第二排序键保证翻页顺序稳定
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "question_count", Value: dir},
			{Key: "_id", Value: 1},
		}}},
		bson.D{{Key: "$skip", Value: q.Skip}},
		bson.D{{Key: "$limit", Value: q.Limit}},
	)

	items, err := aggregate[model.CategoryWithQuestionCount](ctx, s.col(ColCategories), pipeline)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListActiveCategories 启用中的分类，按 sortOrder 升序（公开下拉选项用）
func (s *Store) ListActiveCategories(ctx context.Context) ([]*model.Category, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "sort_order", Value: 1},
		{Key: "_id", Value: 1},
	})
	return findMany[model.Category](ctx, s.col(ColCategories),
		bson.D{{Key: "is_active", Value: true}}, opts)
}

// ListCategoriesWithQuestionCounts 全部分类及题目数，按 sortOrder 升序
func (s *Store) ListCategoriesWithQuestionCounts(ctx context.Context) ([]*model.CategoryWithQuestionCount, error) {
	pipeline := mongo.Pipeline{}
	pipeline = append(pipeline, questionCountStages()...)
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{
		{Key: "sort_order", Value: 1},
		{Key: "_id", Value: 1},
	}}})
	return aggregate[model.CategoryWithQuestionCount](ctx, s.col(ColCategories), pipeline)
}

// questionCountStages $lookup questions 并折算 question_count 的公共阶段
func questionCountStages() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: ColQuestions},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "category_id"},
			{Key: "as", Value: "questions"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "question_count", Value: bson.D{{Key: "$size", Value: "$questions"}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "questions", Value: 0}}}},
	}
}
