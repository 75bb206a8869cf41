package repository

import (
	"errors"
	"math"
	"strings"

	"restaurant-pos/internal/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListQuery carries the paging, search and sort parameters shared by every list endpoint.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q ListQuery) Offset() int {
	q = q.normalized()
	return (q.Page - 1) * q.Limit
}

// Pagination is the envelope returned next to every page of results.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

func NewPagination(q ListQuery, total int64) Pagination {
	q = q.normalized()
	pages := int(math.Ceil(float64(total) / float64(q.Limit)))
	return Pagination{
		CurrentPage: q.Page,
		TotalPages:  pages,
		TotalItems:  total,
		Limit:       q.Limit,
		HasNext:     q.Page < pages,
		HasPrev:     q.Page > 1,
	}
}

// Paginate slices an in-memory result set the same way the SQL queries page.
func Paginate[T any](items []T, q ListQuery) []T {
	q = q.normalized()
	start := q.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + q.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// orderBy maps a public sort key onto a whitelisted column expression. Unknown keys fall back.
func orderBy(q ListQuery, columns map[string]string, fallback string, fallbackDesc bool) clause.OrderByColumn {
	col, ok := columns[q.SortBy]
	if !ok {
		col = fallback
	}
	desc := fallbackDesc
	switch strings.ToLower(q.SortOrder) {
	case "asc":
		desc = false
	case "desc":
		desc = true
	}
	raw := strings.Contains(col, "(")
	return clause.OrderByColumn{Column: clause.Column{Name: col, Raw: raw}, Desc: desc}
}

// numeric compares a decimal column by value. Sqlite keeps decimals as text.
func numeric(col string) string {
	return "CAST(" + col + " AS NUMERIC)"
}

func searchPattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// notFound turns gorm's missing-row error into the domain NotFound kind.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

// duplicate turns a unique index violation into the domain Conflict kind.
func duplicate(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(format, args...)
	}
	return err
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
