package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListFilters(t *testing.T) {
	req := httptest.NewRequest("GET", "/?page=3&limit=500&search=%20acme%20&sort=name&dir=DESC", nil)
	f := ParseListFilters(req)

	assert.Equal(t, 3, f.Page)
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, "acme", f.Search)
	assert.Equal(t, SortDesc, f.SortDir)
	assert.Equal(t, 200, f.Offset())
	assert.Equal(t, 7, f.Pagination(650).TotalPages)
}

func TestParseListFiltersDefaults(t *testing.T) {
	f := ParseListFilters(httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, ListFilters{Page: DefaultPage, Limit: DefaultLimit, SortDir: SortAsc}, f)
	assert.Zero(t, f.Offset())
}

func TestSortClause(t *testing.T) {
	allowed := map[string]string{"name": "tax_name"}
	assert.Equal(t, "tax_name DESC", SortClause("name", SortDesc, allowed, "id"))
	assert.Equal(t, "id ASC", SortClause("id; DROP TABLE taxes", SortAsc, allowed, "id"))
}
