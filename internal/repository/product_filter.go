package repository

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductFilter holds the optional listing predicates. Nil means "not filtered".
type ProductFilter struct {
	CategoryID *uint
	Search     *string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Available  *bool
}

// Predicate is one WHERE fragment with its bound arguments.
type Predicate struct {
	Clause string
	Args   []interface{}
}

// QuerySpec is a composed product query, not yet bound to a connection.
// All predicates are ANDed.
type QuerySpec struct {
	Predicates []Predicate
	OrderBy    string
}

// Scope applies the predicates to db. Ordering is left to the caller so the
// same spec can back a COUNT.
func (q QuerySpec) Scope(db *gorm.DB) *gorm.DB {
	for _, p := range q.Predicates {
		db = db.Where(p.Clause, p.Args...)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildProductQuery composes filter into a QuerySpec. An empty filter matches
// every product. Results are ordered by id.
func BuildProductQuery(filter ProductFilter) QuerySpec {
	spec := QuerySpec{OrderBy: "products.id asc"}

	if filter.CategoryID != nil {
		spec.Predicates = append(spec.Predicates, Predicate{
			Clause: "products.category_id = ?",
			Args:   []interface{}{*filter.CategoryID},
		})
	}

	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(*filter.Search)) + "%"
		spec.Predicates = append(spec.Predicates, Predicate{
			Clause: `(LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(products.description) LIKE ? ESCAPE '\' OR LOWER(products.product_number) LIKE ? ESCAPE '\')`,
			Args:   []interface{}{pattern, pattern, pattern},
		})
	}

	if filter.MinPrice != nil {
		spec.Predicates = append(spec.Predicates, Predicate{
			Clause: "products.price >= ?",
			Args:   []interface{}{*filter.MinPrice},
		})
	}

	if filter.MaxPrice != nil {
		spec.Predicates = append(spec.Predicates, Predicate{
			Clause: "products.price <= ?",
			Args:   []interface{}{*filter.MaxPrice},
		})
	}

	if filter.Available != nil {
		spec.Predicates = append(spec.Predicates, Predicate{
			Clause: "products.is_available = ?",
			Args:   []interface{}{*filter.Available},
		})
	}

	return spec
}

// ParseProductFilter reads filters from query parameters. Unknown keys and
// values that do not parse are ignored.
func ParseProductFilter(q url.Values) ProductFilter {
	var f ProductFilter

	if v := q.Get("category_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			cid := uint(id)
			f.CategoryID = &cid
		}
	}
	if v := strings.TrimSpace(q.Get("search")); v != "" {
		f.Search = &v
	}
	if v := q.Get("min_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MinPrice = &d
		}
	}
	if v := q.Get("max_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MaxPrice = &d
		}
	}
	if v := q.Get("available"); v != "" {
		if b, ok := ParseBool(v); ok {
			f.Available = &b
		}
	}
	return f
}

// ParseBool accepts the boolean spellings HTML forms send.
func ParseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}
