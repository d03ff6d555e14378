package mongostore

import (
	"context"

	"questions-admin/internal/shared/listquery"
	"questions-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ============================================================================
// QuestionStore
// ============================================================================

func (s *Store) CreateQuestion(ctx context.Context, question *model.Question) error {
	return insertOne(ctx, s.col(ColQuestions), question)
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	return findOne[model.Question](ctx, s.col(ColQuestions), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) UpdateQuestion(ctx context.Context, question *model.Question) error {
	return replaceByID(ctx, s.col(ColQuestions), question.ID, question)
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColQuestions), id)
}

func (s *Store) ListQuestions(ctx context.Context, q *listquery.Query) ([]*model.Question, int64, error) {
	return listFind[model.Question](ctx, s.col(ColQuestions), q)
}

func (s *Store) CountQuestionsByCategory(ctx context.Context, categoryID string) (int64, error) {
	n, err := s.col(ColQuestions).CountDocuments(ctx, bson.D{{Key: "category_id", Value: categoryID}})
	return n, wrapError(err)
}

func (s *Store) DistinctQuestionCategories(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, "category_id")
}

func (s *Store) DistinctQuestionLevels(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, "level")
}

func (s *Store) distinctStrings(ctx context.Context, field string) ([]string, error) {
	var out []string
	if err := s.col(ColQuestions).Distinct(ctx, field, bson.D{}).Decode(&out); err != nil {
		return nil, wrapError(err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// QuestionStats 题库总数 + 按分类/难度分组计数
func (s *Store) QuestionStats(ctx context.Context) (*model.QuestionStats, error) {
	total, err := s.col(ColQuestions).CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, wrapError(err)
	}

	byCategory, err := s.groupCount(ctx, "category_id")
	if err != nil {
		return nil, err
	}
	byLevel, err := s.groupCount(ctx, "level")
	if err != nil {
		return nil, err
	}

	return &model.QuestionStats{
		TotalQuestions: total,
		CategoryStats:  byCategory,
		LevelStats:     byLevel,
	}, nil
}

// groupCount $group 按字段计数，计数降序
func (s *Store) groupCount(ctx context.Context, field string) ([]model.BucketCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "count", Value: -1},
			{Key: "_id", Value: 1},
		}}},
	}
	items, err := aggregate[model.BucketCount](ctx, s.col(ColQuestions), pipeline)
	if err != nil {
		return nil, err
	}
	out := make([]model.BucketCount, 0, len(items))
	for _, it := range items {
		out = append(out, *it)
	}
	return out, nil
}
