package repository_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"catalog/internal/database/dbtest"
	"catalog/internal/model"
	"catalog/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func ptr[T any](v T) *T { return &v }

func seedCatalog(t *testing.T, db *gorm.DB) (lighting, furniture model.Category) {
	t.Helper()

	lighting = model.Category{Name: "Lighting"}
	furniture = model.Category{Name: "Furniture"}
	require.NoError(t, db.Create(&lighting).Error)
	require.NoError(t, db.Create(&furniture).Error)

	products := []model.Product{
		{Name: "Desk Lamp", Description: "Brass desk lamp", ProductNumber: "LMP-001", Price: decimal.NewFromInt(40), StockQuantity: 3, IsAvailable: true, CategoryID: lighting.ID},
		{Name: "Floor Lamp", Description: "Tall reading light", ProductNumber: "LMP-002", Price: decimal.NewFromInt(120), StockQuantity: 0, IsAvailable: false, CategoryID: lighting.ID},
		{Name: "Oak Table", Description: "Solid oak, seats six", ProductNumber: "TBL-100", Price: decimal.NewFromInt(800), StockQuantity: 1, IsAvailable: true, CategoryID: furniture.ID},
		{Name: "Stool", Description: "Pine stool with lamp hook", ProductNumber: "STL-7", Price: decimal.RequireFromString("35.50"), StockQuantity: 12, IsAvailable: true, CategoryID: furniture.ID},
		{Name: "Sale_Item 100%", Description: "Clearance", ProductNumber: "CLR-1", Price: decimal.NewFromInt(5), StockQuantity: 1, IsAvailable: true, CategoryID: furniture.ID},
	}
	for i := range products {
		require.NoError(t, db.Create(&products[i]).Error)
	}
	return lighting, furniture
}

func names(products []model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func TestBuildProductQueryFilters(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()
	lighting, _ := seedCatalog(t, db)

	tests := []struct {
		name   string
		filter repository.ProductFilter
		want   []string
	}{
		{
			name:   "no filters returns everything in id order",
			filter: repository.ProductFilter{},
			want:   []string{"Desk Lamp", "Floor Lamp", "Oak Table", "Stool", "Sale_Item 100%"},
		},
		{
			name:   "category",
			filter: repository.ProductFilter{CategoryID: ptr(lighting.ID)},
			want:   []string{"Desk Lamp", "Floor Lamp"},
		},
		{
			name:   "search matches name, description or number case-insensitively",
			filter: repository.ProductFilter{Search: ptr("LAMP")},
			want:   []string{"Desk Lamp", "Floor Lamp", "Stool"},
		},
		{
			name:   "search on product number",
			filter: repository.ProductFilter{Search: ptr("tbl-1")},
			want:   []string{"Oak Table"},
		},
		{
			name:   "search wildcards match literally",
			filter: repository.ProductFilter{Search: ptr("_item 100%")},
			want:   []string{"Sale_Item 100%"},
		},
		{
			name:   "price bounds are inclusive",
			filter: repository.ProductFilter{MinPrice: ptr(decimal.RequireFromString("35.50")), MaxPrice: ptr(decimal.NewFromInt(120))},
			want:   []string{"Desk Lamp", "Floor Lamp", "Stool"},
		},
		{
			name:   "availability",
			filter: repository.ProductFilter{Available: ptr(false)},
			want:   []string{"Floor Lamp"},
		},
		{
			name:   "combined filters are ANDed",
			filter: repository.ProductFilter{Search: ptr("lamp"), Available: ptr(true), MaxPrice: ptr(decimal.NewFromInt(50))},
			want:   []string{"Desk Lamp", "Stool"},
		},
	}

	total, err := repo.Count(ctx, repository.BuildProductQuery(repository.ProductFilter{}))
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := repository.BuildProductQuery(tt.filter)
			got, count, err := repo.List(ctx, spec, 0, 20)
			require.NoError(t, err)

			assert.Equal(t, tt.want, names(got))
			assert.Equal(t, int64(len(tt.want)), count)
			assert.LessOrEqual(t, count, total)

			// Running the same spec again gives the same answer.
			again, againCount, err := repo.List(ctx, repository.BuildProductQuery(tt.filter), 0, 20)
			require.NoError(t, err)
			assert.Equal(t, names(got), names(again))
			assert.Equal(t, count, againCount)
		})
	}
}

func TestListPreloadsRelationsAndPaginates(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()

	cat := model.Category{Name: "Bulk"}
	require.NoError(t, db.Create(&cat).Error)
	for i := 0; i < 58; i++ {
		p := model.Product{
			Name: fmt.Sprintf("Item %02d", i), Description: "bulk", ProductNumber: fmt.Sprintf("B-%02d", i),
			Price: decimal.NewFromInt(int64(i)), IsAvailable: true, CategoryID: cat.ID,
		}
		require.NoError(t, db.Create(&p).Error)
	}
	first := model.ProductImage{ProductID: 1, ImagePath: "product_images/a.png", AltText: "a"}
	require.NoError(t, db.Create(&first).Error)

	spec := repository.BuildProductQuery(repository.ProductFilter{})

	page1, total, err := repo.List(ctx, spec, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(58), total)
	assert.Len(t, page1, 20)
	require.NotNil(t, page1[0].Category)
	assert.Equal(t, "Bulk", page1[0].Category.Name)
	assert.Len(t, page1[0].Images, 1)

	page3, _, err := repo.List(ctx, spec, 40, 20)
	require.NoError(t, err)
	assert.Len(t, page3, 18)
	assert.Equal(t, "Item 40", page3[0].Name)

	page4, _, err := repo.List(ctx, spec, 60, 20)
	require.NoError(t, err)
	assert.Empty(t, page4)
}

func TestParseProductFilter(t *testing.T) {
	q := url.Values{
		"category_id": {"3"},
		"search":      {"  oak "},
		"min_price":   {"10.5"},
		"max_price":   {"abc"},
		"available":   {"on"},
		"color":       {"red"},
	}

	f := repository.ParseProductFilter(q)

	require.NotNil(t, f.CategoryID)
	assert.Equal(t, uint(3), *f.CategoryID)
	require.NotNil(t, f.Search)
	assert.Equal(t, "oak", *f.Search)
	require.NotNil(t, f.MinPrice)
	assert.True(t, f.MinPrice.Equal(decimal.RequireFromString("10.5")))
	assert.Nil(t, f.MaxPrice)
	require.NotNil(t, f.Available)
	assert.True(t, *f.Available)

	empty := repository.ParseProductFilter(url.Values{})
	assert.Empty(t, repository.BuildProductQuery(empty).Predicates)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "on", "yes"} {
		b, ok := repository.ParseBool(v)
		assert.True(t, ok, v)
		assert.True(t, b, v)
	}
	for _, v := range []string{"0", "false", "off", "no"} {
		b, ok := repository.ParseBool(v)
		assert.True(t, ok, v)
		assert.False(t, b, v)
	}
	_, ok := repository.ParseBool("maybe")
	assert.False(t, ok)
}
