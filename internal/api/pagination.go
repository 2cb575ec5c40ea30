package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type pageQuery struct {
	Size  int
	After uint
}

// page is the list envelope shared by every collection endpoint.
type page[T any] struct {
	Items       []T     `json:"items"`
	TotalCount  int64   `json:"totalCount"`
	PageSize    int     `json:"pageSize"`
	NextPageKey *string `json:"nextPageKey,omitempty"`
}

type keyed interface {
	PrimaryKey() uint
}

// parsePageQuery reads pageSize (1..100, default 10) and the nextPageKey cursor.
func parsePageQuery(c *gin.Context) (pageQuery, error) {
	q := pageQuery{Size: defaultPageSize}

	if raw := strings.TrimSpace(c.Query("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return pageQuery{}, invalidField("pageSize", "must be an integer between 1 and 100")
		}
		q.Size = size
	}

	if raw := strings.TrimSpace(c.Query("nextPageKey")); raw != "" {
		after, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || after == 0 {
			return pageQuery{}, invalidField("nextPageKey", "is not a valid cursor")
		}
		q.After = uint(after)
	}

	return q, nil
}

// paginate counts base, then loads one page newest first. One extra row is fetched to
// decide whether a next page exists.
func paginate[T keyed](base *gorm.DB, q pageQuery) ([]T, int64, *string, error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, nil, err
	}

	query := base.Session(&gorm.Session{})
	if q.After > 0 {
		query = query.Where("id < ?", q.After)
	}

	rows := make([]T, 0, q.Size+1)
	if err := query.Order("id DESC").Limit(q.Size + 1).Find(&rows).Error; err != nil {
		return nil, 0, nil, err
	}

	var next *string
	if len(rows) > q.Size {
		rows = rows[:q.Size]
		key := strconv.FormatUint(uint64(rows[len(rows)-1].PrimaryKey()), 10)
		next = &key
	}
	return rows, total, next, nil
}

func newPage[M keyed, T any](rows []M, total int64, next *string, q pageQuery, view func(M) T) page[T] {
	items := make([]T, 0, len(rows))
	for _, r := range rows {
		items = append(items, view(r))
	}
	return page[T]{Items: items, TotalCount: total, PageSize: q.Size, NextPageKey: next}
}
