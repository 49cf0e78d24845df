package model

import "github.com/shopspring/decimal"

// CatalogStatistics summarises the catalog as it stands right now.
type CatalogStatistics struct {
	TotalProducts     int64                `json:"total_products"`
	AvailableProducts int64                `json:"available_products"`
	TotalStock        int64                `json:"total_stock"`
	InventoryValue    decimal.Decimal      `json:"inventory_value"`
	Categories        []CategoryStatistics `json:"categories"`
	TopStocked        []ProductRanking     `json:"top_stocked"`
}

// CategoryStatistics counts the products filed under one category.
type CategoryStatistics struct {
	CategoryID    uint   `json:"category_id"`
	CategoryName  string `json:"category_name"`
	ProductCount  int64  `json:"product_count"`
	StockQuantity int64  `json:"stock_quantity"`
}

// ProductRanking is a product ranked by the value of its stock at final price
type ProductRanking struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductNumber string          `json:"product_number"`
	StockQuantity int             `json:"stock_quantity"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	StockValue    decimal.Decimal `json:"stock_value"`
}

// StockLine is the slice of a product row the statistics are computed from.
type StockLine struct {
	ID            uint
	Name          string
	ProductNumber string
	Price         decimal.Decimal
	Discount      decimal.Decimal
	StockQuantity int
	IsAvailable   bool
}
