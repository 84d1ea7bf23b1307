package domain

// Pagination mirrors the pagination block of list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Page is a page of T with its pagination block. Paged is false when the
// backend sent no pagination block or total count, so the rows may be the
// whole unfiltered collection.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
	Paged      bool       `json:"-"`
}

// NewPagination computes the pagination block for a page of size limit.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if total > 0 && limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, TotalItems: total, TotalPages: totalPages}
}
