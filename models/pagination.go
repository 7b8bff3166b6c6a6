package models

import "math"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageRequest is a 1-based offset page.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalized clamps the request to valid bounds.
func (p PageRequest) Normalized() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	// keep the offset inside a 32-bit range
	if maxPage := math.MaxInt32 / p.Limit; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

func (p PageRequest) Offset() int {
	n := p.Normalized()
	return (n.Page - 1) * n.Limit
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(req PageRequest, total int) Pagination {
	n := req.Normalized()
	pages := 0
	if total > 0 {
		pages = (total + n.Limit - 1) / n.Limit
	}
	return Pagination{Page: n.Page, Limit: n.Limit, Total: total, Pages: pages}
}
