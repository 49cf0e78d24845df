package service

import (
	"context"
	"sort"

	"catalog/internal/authz"
	"catalog/internal/model"
	"catalog/internal/pricing"
	"catalog/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	DefaultTopStocked = 5
	MaxTopStocked     = 50
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, actor uint, top int) (*model.CatalogStatistics, error)
}

type statisticsService struct {
	repo  repository.StatisticsRepository
	authz Authorizer
}

func NewStatisticsService(repo repository.StatisticsRepository, az Authorizer) StatisticsService {
	return &statisticsService{repo: repo, authz: az}
}

// GetStatistics totals the catalog and ranks the top products by stock value.
// Inventory value uses the final price, so discounts lower it.
func (s *statisticsService) GetStatistics(ctx context.Context, actor uint, top int) (*model.CatalogStatistics, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionViewStatistics); err != nil {
		return nil, err
	}
	if top <= 0 {
		top = DefaultTopStocked
	}
	if top > MaxTopStocked {
		top = MaxTopStocked
	}

	categories, err := s.repo.CategoryTotals(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.StockLines(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.CatalogStatistics{
		InventoryValue: decimal.Zero,
		Categories:     categories,
		TopStocked:     make([]model.ProductRanking, 0, len(lines)),
	}
	for _, l := range lines {
		final := pricing.FinalPrice(l.Price, l.Discount)
		value := final.Mul(decimal.NewFromInt(int64(l.StockQuantity)))

		stats.TotalProducts++
		if l.IsAvailable {
			stats.AvailableProducts++
		}
		stats.TotalStock += int64(l.StockQuantity)
		stats.InventoryValue = stats.InventoryValue.Add(value)
		stats.TopStocked = append(stats.TopStocked, model.ProductRanking{
			ProductID:     l.ID,
			ProductName:   l.Name,
			ProductNumber: l.ProductNumber,
			StockQuantity: l.StockQuantity,
			FinalPrice:    final,
			StockValue:    value,
		})
	}

	// Ties keep id order.
	sort.SliceStable(stats.TopStocked, func(i, j int) bool {
		return stats.TopStocked[i].StockValue.GreaterThan(stats.TopStocked[j].StockValue)
	})
	if len(stats.TopStocked) > top {
		stats.TopStocked = stats.TopStocked[:top]
	}
	return stats, nil
}
