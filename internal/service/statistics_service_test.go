package service_test

import (
	"context"
	"testing"

	"catalog/internal/repository"
	"catalog/internal/service"
	"catalog/pkg/apperror"
	"catalog/pkg/optional"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stats := service.NewStatisticsService(repository.NewStatisticsRepository(f.db), f.engine)

	lighting := f.mkCategory(t, "Lighting")
	empty := f.mkCategory(t, "Rugs")

	lamp := productPayload(lighting, "LMP-1") // 80.00 x 4
	_, err := f.catalog.CreateProduct(ctx, f.admin, lamp)
	require.NoError(t, err)

	shade := productPayload(lighting, "LMP-2")
	shade.Price = optional.Some(decimal.RequireFromString("200.00"))
	shade.Discount = optional.Some(decimal.NewFromInt(25))
	shade.StockQuantity = optional.Some(2)
	shade.IsAvailable = optional.Some(false)
	_, err = f.catalog.CreateProduct(ctx, f.admin, shade)
	require.NoError(t, err)

	got, err := stats.GetStatistics(ctx, f.admin, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(2), got.TotalProducts)
	assert.Equal(t, int64(1), got.AvailableProducts)
	assert.Equal(t, int64(6), got.TotalStock)
	// 80*4 + 150*2
	assert.True(t, got.InventoryValue.Equal(decimal.NewFromInt(620)), got.InventoryValue.String())

	require.Len(t, got.Categories, 2)
	assert.Equal(t, lighting, got.Categories[0].CategoryID)
	assert.Equal(t, int64(2), got.Categories[0].ProductCount)
	assert.Equal(t, int64(6), got.Categories[0].StockQuantity)
	assert.Equal(t, empty, got.Categories[1].CategoryID)
	assert.Zero(t, got.Categories[1].ProductCount)

	require.Len(t, got.TopStocked, 1)
	assert.Equal(t, "LMP-1", got.TopStocked[0].ProductNumber)
	assert.True(t, got.TopStocked[0].StockValue.Equal(decimal.NewFromInt(320)))
}

func TestGetStatisticsClampsTop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stats := service.NewStatisticsService(repository.NewStatisticsRepository(f.db), f.engine)

	cat := f.mkCategory(t, "Lighting")
	for _, n := range []string{"A-1", "A-2", "A-3", "A-4", "A-5", "A-6"} {
		_, err := f.catalog.CreateProduct(ctx, f.admin, productPayload(cat, n))
		require.NoError(t, err)
	}

	got, err := stats.GetStatistics(ctx, f.admin, 0)
	require.NoError(t, err)
	assert.Len(t, got.TopStocked, service.DefaultTopStocked)
	// Equal stock values keep id order.
	assert.Equal(t, "A-1", got.TopStocked[0].ProductNumber)

	got, err = stats.GetStatistics(ctx, f.admin, 1000)
	require.NoError(t, err)
	assert.Len(t, got.TopStocked, 6)
}

func TestGetStatisticsRequiresCatalogPermission(t *testing.T) {
	f := newFixture(t)
	stats := service.NewStatisticsService(repository.NewStatisticsRepository(f.db), f.engine)

	_, err := stats.GetStatistics(context.Background(), f.plain, 5)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = stats.GetStatistics(context.Background(), 0, 5)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
