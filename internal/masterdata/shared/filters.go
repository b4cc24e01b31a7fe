package shared

import (
	"net/http"
	"strconv"
	"strings"

	appshared "github.com/track-invoice/track-invoice/internal/shared"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}

// ParseListFilters reads page, limit, search, sort and dir from the query string.
func ParseListFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  strings.TrimSpace(q.Get("search")),
		SortBy:  q.Get("sort"),
		SortDir: strings.ToLower(q.Get("dir")),
	}
	return f.Normalize()
}

// Normalize clamps paging values into range.
func (f ListFilters) Normalize() ListFilters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.SortDir != SortDesc {
		f.SortDir = SortAsc
	}
	return f
}

// Offset returns the row offset of the current page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Pagination converts the filters plus a total into response metadata.
func (f ListFilters) Pagination(total int) appshared.Pagination {
	return appshared.NewPagination(f.Page, f.Limit, total)
}

// SortClause resolves sortBy against the allowed column map, falling back
// to fallback. Only whitelisted columns ever reach the SQL text.
func SortClause(sortBy, sortDir string, allowed map[string]string, fallback string) string {
	col, ok := allowed[sortBy]
	if !ok {
		col = fallback
	}
	dir := "ASC"
	if sortDir == SortDesc {
		dir = "DESC"
	}
	return col + " " + dir
}

// SearchPattern wraps term for ILIKE matching.
func SearchPattern(term string) string {
	return "%" + strings.TrimSpace(term) + "%"
}
