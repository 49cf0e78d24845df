package pagination

import (
	"math"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1

	// ProductPageSize is the fixed page size of the product listing.
	ProductPageSize = 20
)

// Params holds validated pagination parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse extracts and validates page/limit from query parameters
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	return New(page, limit)
}

// ParsePage reads only the page number and applies a fixed page size.
func ParsePage(c *gin.Context, size int) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	return New(page, size)
}

// New normalizes page and limit into Params.
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// Cap the page so the offset cannot overflow.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Links points at the boundary pages. Prev and Next are nil when there is no
// such page.
type Links struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

// Meta describes where a page sits in the full result set. From and To are
// 1-based item positions, nil when the page is empty.
type Meta struct {
	CurrentPage int    `json:"current_page"`
	From        *int   `json:"from"`
	To          *int   `json:"to"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Total       int64  `json:"total"`
	Path        string `json:"path"`
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Links Links `json:"links"`
	Meta  Meta  `json:"meta"`
}

// LastPage returns ceil(total/perPage), never less than 1.
func LastPage(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}

// NewPage assembles a Page from the items fetched for p. basePath is the
// listing URL and query carries the active filters, which every link keeps.
func NewPage[T any](items []T, total int64, p Params, basePath string, query url.Values) Page[T] {
	if items == nil {
		items = []T{}
	}
	last := LastPage(total, p.Limit)

	link := func(page int) string {
		q := url.Values{}
		for k, v := range query {
			if k == "page" {
				continue
			}
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		return basePath + "?" + q.Encode()
	}

	links := Links{
		First: link(1),
		Last:  link(last),
	}
	if p.Page > 1 {
		prev := link(min(p.Page-1, last))
		links.Prev = &prev
	}
	if p.Page < last {
		next := link(p.Page + 1)
		links.Next = &next
	}

	meta := Meta{
		CurrentPage: p.Page,
		LastPage:    last,
		PerPage:     p.Limit,
		Total:       total,
		Path:        basePath,
	}
	if len(items) > 0 {
		from := p.Offset + 1
		to := p.Offset + len(items)
		meta.From = &from
		meta.To = &to
	}

	return Page[T]{Data: items, Links: links, Meta: meta}
}
