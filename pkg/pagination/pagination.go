package pagination

import "math"

// Params holds zero-based page parameters. Page 0 is the first page.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// New builds Params, clamping a negative page to 0. A non-positive perPage is
// kept as-is so that Limit reports an empty window.
func New(page, perPage int) Params {
	if page < 0 {
		page = 0
	}
	return Params{Page: page, PerPage: perPage}
}

// Skip returns the number of matching documents to pass over, page * perPage,
// saturating at math.MaxInt64.
func (p Params) Skip() int64 {
	if p.Page <= 0 || p.PerPage <= 0 {
		return 0
	}
	if int64(p.Page) > math.MaxInt64/int64(p.PerPage) {
		return math.MaxInt64
	}
	return int64(p.Page) * int64(p.PerPage)
}

// Limit returns the maximum number of documents in the window.
func (p Params) Limit() int64 {
	if p.PerPage <= 0 {
		return 0
	}
	return int64(p.PerPage)
}

// NumPages returns ceil(total / perPage).
func NumPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	n := total / perPage
	if total%perPage > 0 {
		n++
	}
	return n
}

// Result wraps one page of data with the totals needed to render pagers.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	NumPages   int  `json:"num_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	numPages := NumPages(totalCount, params.PerPage)

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		NumPages:   numPages,
		HasNext:    params.Page+1 < numPages,
		HasPrev:    params.Page > 0,
	}
}
