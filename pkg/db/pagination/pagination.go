// Package pagination provides page/page_size paging helpers for list queries.
package pagination

import "gorm.io/gorm"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination binds the paging query parameters of list endpoints.
type Pagination struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize clamps page and page_size into their allowed ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Scope applies LIMIT/OFFSET to a gorm query.
func (p Pagination) Scope() func(*gorm.DB) *gorm.DB {
	n := p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(n.Offset()).Limit(n.PageSize)
	}
}

// Metadata describes the page returned to API callers.
type Metadata struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// NewMetadata computes pagination metadata for a total row count.
func NewMetadata(p Pagination, total int64) Metadata {
	n := p.Normalize()
	pages := total / int64(n.PageSize)
	if total%int64(n.PageSize) != 0 {
		pages++
	}
	return Metadata{
		Page:       n.Page,
		PageSize:   n.PageSize,
		Total:      total,
		TotalPages: pages,
	}
}
