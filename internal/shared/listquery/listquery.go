// Package listquery 列表查询构建器
//
// 将原始查询参数（page/limit/search/sortBy/sortOrder + 资源精确过滤条件）
// 解析为规范化的 Query，并生成 MongoDB 的 filter/sort 文档与分页摘要。
// 四类资源（用户/题目/分类/角色）共用同一套解析逻辑，差异由 Config 声明。
//
// 校验策略为尽早拒绝：page/limit 非数字、search 超长、sortBy 不在允许集内
// 都直接返回错误，不做静默降级。
package listquery

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// 分页默认值与上限
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Config 资源级查询配置
type Config struct {
	// SearchFields 模糊搜索命中的 bson 字段，多个字段用 $or 组合
	SearchFields []string
	// MinSearchLen / MaxSearchLen 搜索词长度限制（按字符计），0 表示不限制
	MinSearchLen int
	MaxSearchLen int
	// AllowedSorts 排序字段白名单：外部参数名 -> bson 字段名
	AllowedSorts map[string]string
	// AggregateSorts 需要聚合管道（join+count）的排序字段，
	// 解析通过但由资源 handler 单独走聚合查询
	AggregateSorts []string
	// DefaultSort / DefaultAsc 缺省排序
	DefaultSort string
	DefaultAsc  bool
}

// Query 规范化后的列表查询
type Query struct {
	Page  int
	Limit int
	Skip  int

	Search       string
	searchFields []string

	SortBy    string // 外部参数名
	SortField string // bson 字段名
	SortAsc   bool
	// Aggregate 为 true 时排序字段不存在于基础文档上，
	// handler 必须走 join+count 聚合管道而不是普通 Find
	Aggregate bool

	// Filters 精确匹配条件（语义视图，供内存实现/测试使用）
	Filters map[string]any
	filters bson.D
}

// Pagination 分页摘要
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Parse 解析原始查询参数
func Parse(values url.Values, cfg Config) (*Query, error) {
	q := &Query{
		Page:         DefaultPage,
		Limit:        DefaultLimit,
		SortAsc:      cfg.DefaultAsc,
		SortBy:       cfg.DefaultSort,
		Filters:      map[string]any{},
		searchFields: cfg.SearchFields,
	}

	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("page must be a number")
		}
		if n < 1 {
			n = 1
		}
		q.Page = n
	}

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("limit must be a number")
		}
		if n < 1 {
			n = 1
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		q.Limit = n
	}

	if search := strings.TrimSpace(values.Get("search")); search != "" {
		n := utf8.RuneCountInString(search)
		if cfg.MinSearchLen > 0 && n < cfg.MinSearchLen {
			return nil, fmt.Errorf("search term must be at least %d characters long", cfg.MinSearchLen)
		}
		if cfg.MaxSearchLen > 0 && n > cfg.MaxSearchLen {
			return nil, fmt.Errorf("search term cannot exceed %d characters", cfg.MaxSearchLen)
		}
		q.Search = search
	}

	if sortBy := values.Get("sortBy"); sortBy != "" {
		q.SortBy = sortBy
	}
	if field, ok := cfg.AllowedSorts[q.SortBy]; ok {
		q.SortField = field
	} else {
		return nil, fmt.Errorf("invalid sort field %q", q.SortBy)
	}
	for _, agg := range cfg.AggregateSorts {
		if q.SortBy == agg {
			q.Aggregate = true
		}
	}

	switch order := values.Get("sortOrder"); order {
	case "":
		// 保留资源缺省方向
	case "asc":
		q.SortAsc = true
	case "desc":
		q.SortAsc = false
	default:
		return nil, fmt.Errorf(`sort order must be either "asc" or "desc"`)
	}

	q.Skip = (q.Page - 1) * q.Limit
	return q, nil
}

// AddFilter 追加精确匹配条件（与搜索条件 AND 组合）
func (q *Query) AddFilter(field string, value any) {
	q.Filters[field] = value
	q.filters = append(q.filters, bson.E{Key: field, Value: value})
}

// FilterDoc 生成 MongoDB 过滤文档
//
// 精确条件与搜索 $or 都挂在顶层（顶层元素之间是 AND 语义）。
// 搜索词做 QuoteMeta 转义后按大小写不敏感正则匹配。
func (q *Query) FilterDoc() bson.D {
	doc := bson.D{}
	doc = append(doc, q.filters...)

	if q.Search != "" && len(q.searchFields) > 0 {
		pattern := regexp.QuoteMeta(q.Search)
		or := bson.A{}
		for _, f := range q.searchFields {
			or = append(or, bson.D{{Key: f, Value: bson.D{
				{Key: "$regex", Value: pattern},
				{Key: "$options", Value: "i"},
			}}})
		}
		doc = append(doc, bson.E{Key: "$or", Value: or})
	}
	return doc
}

// SortDoc 生成 MongoDB 排序文档
func (q *Query) SortDoc() bson.D {
	dir := -1
	if q.SortAsc {
		dir = 1
	}
	return bson.D{{Key: q.SortField, Value: dir}}
}

// Paginate 根据总数计算分页摘要
func (q *Query) Paginate(total int64) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(q.Limit)))
	return Pagination{
		CurrentPage: q.Page,
		TotalPages:  totalPages,
		TotalCount:  total,
		Limit:       q.Limit,
		HasNextPage: q.Page < totalPages,
		HasPrevPage: q.Page > 1,
	}
}
