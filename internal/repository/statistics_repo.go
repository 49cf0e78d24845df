package repository

import (
	"context"
	"fmt"

	"catalog/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CategoryTotals(ctx context.Context) ([]model.CategoryStatistics, error)
	StockLines(ctx context.Context) ([]model.StockLine, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// CategoryTotals includes categories with no products, ordered by id.
func (r *statisticsRepository) CategoryTotals(ctx context.Context) ([]model.CategoryStatistics, error) {
	var totals []model.CategoryStatistics
	if err := GetDB(ctx, r.db).Table("categories").
		Select("categories.id as category_id, categories.name as category_name, COUNT(products.id) as product_count, COALESCE(SUM(products.stock_quantity), 0) as stock_quantity").
		Joins("LEFT JOIN products ON products.category_id = categories.id").
		Group("categories.id, categories.name").
		Order("categories.id asc").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to query category totals: %w", err)
	}
	return totals, nil
}

func (r *statisticsRepository) StockLines(ctx context.Context) ([]model.StockLine, error) {
	var lines []model.StockLine
	if err := GetDB(ctx, r.db).Model(&model.Product{}).
		Select("id, name, product_number, price, discount, stock_quantity, is_available").
		Order("id asc").
		Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to query stock lines: %w", err)
	}
	return lines, nil
}
