package shared

import (
	"net/http"
	"strconv"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Pagination is the window metadata attached to list responses.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ListQuery reads the limit/offset query parameters, clamped to sane bounds.
func ListQuery(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// NewPagination attaches the result total to the requested window.
func NewPagination(limit, offset, total int) Pagination {
	return Pagination{Limit: limit, Offset: offset, Total: total}
}
