package pagination

import (
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestNewPageSplitsFiftyEightItems(t *testing.T) {
	const total = 58
	tests := []struct {
		page      int
		wantItems int
		wantPrev  bool
		wantNext  bool
	}{
		{page: 1, wantItems: 20, wantPrev: false, wantNext: true},
		{page: 2, wantItems: 20, wantPrev: true, wantNext: true},
		{page: 3, wantItems: 18, wantPrev: true, wantNext: false},
		{page: 4, wantItems: 0, wantPrev: true, wantNext: false},
	}

	for _, tt := range tests {
		p := New(tt.page, ProductPageSize)
		n := total - p.Offset
		if n > p.Limit {
			n = p.Limit
		}
		if n < 0 {
			n = 0
		}

		page := NewPage(items(n), total, p, "/api/products", nil)

		assert.Len(t, page.Data, tt.wantItems, "page %d", tt.page)
		assert.Equal(t, 3, page.Meta.LastPage)
		assert.Equal(t, int64(total), page.Meta.Total)
		assert.Equal(t, 20, page.Meta.PerPage)
		assert.Equal(t, tt.page, page.Meta.CurrentPage)
		assert.Equal(t, tt.wantPrev, page.Links.Prev != nil, "prev on page %d", tt.page)
		assert.Equal(t, tt.wantNext, page.Links.Next != nil, "next on page %d", tt.page)
	}
}

func TestNewPageEmptyPageHasNoRange(t *testing.T) {
	page := NewPage[int](nil, 58, New(4, 20), "/api/products", nil)

	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Nil(t, page.Meta.From)
	assert.Nil(t, page.Meta.To)
}

func TestNewPageRangeAndLinksKeepFilters(t *testing.T) {
	query := url.Values{"search": {"lamp"}, "page": {"2"}}
	page := NewPage(items(20), 58, New(2, 20), "/api/products", query)

	require.NotNil(t, page.Meta.From)
	assert.Equal(t, 21, *page.Meta.From)
	assert.Equal(t, 40, *page.Meta.To)

	assert.Equal(t, "/api/products?page=1&search=lamp", page.Links.First)
	assert.Equal(t, "/api/products?page=3&search=lamp", page.Links.Last)
	require.NotNil(t, page.Links.Prev)
	assert.Equal(t, "/api/products?page=1&search=lamp", *page.Links.Prev)
	require.NotNil(t, page.Links.Next)
	assert.Equal(t, "/api/products?page=3&search=lamp", *page.Links.Next)
}

func TestLastPage(t *testing.T) {
	assert.Equal(t, 1, LastPage(0, 20))
	assert.Equal(t, 1, LastPage(20, 20))
	assert.Equal(t, 2, LastPage(21, 20))
	assert.Equal(t, 3, LastPage(58, 20))
}

func TestParseClampsValues(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 20},
		{"page=0&limit=0", 1, 20},
		{"page=3&limit=500", 3, 100},
		{"page=abc&limit=5", 1, 5},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)

		p := Parse(c)
		assert.Equal(t, tt.wantPage, p.Page, tt.query)
		assert.Equal(t, tt.wantLimit, p.Limit, tt.query)
		assert.Equal(t, (p.Page-1)*p.Limit, p.Offset)
	}
}

func TestNewKeepsOffsetNonNegativeForHugePages(t *testing.T) {
	p := New(math.MaxInt/10, ProductPageSize)

	assert.GreaterOrEqual(t, p.Offset, 0)
	assert.LessOrEqual(t, p.Page, math.MaxInt/ProductPageSize)
	assert.Equal(t, (p.Page-1)*p.Limit, p.Offset)

	page := NewPage([]int(nil), 3, p, "/api/products", nil)
	assert.Empty(t, page.Data)
	assert.Nil(t, page.Meta.From)
	assert.Nil(t, page.Meta.To)
	assert.Equal(t, 1, page.Meta.LastPage)
	assert.Nil(t, page.Links.Next)
	require.NotNil(t, page.Links.Prev)
	assert.Equal(t, "/api/products?page=1", *page.Links.Prev)
}
