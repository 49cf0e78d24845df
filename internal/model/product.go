package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Its final price is derived on read and never stored.
type Product struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	Name                  string          `gorm:"type:varchar(255);not null" json:"name"`
	Description           string          `gorm:"type:text;not null" json:"description"`
	ProductNumber         string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"product_number"`
	Price                 decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Discount              decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount"` // percent, 0..100
	ManufacturingMaterial *string         `gorm:"type:varchar(255)" json:"manufacturing_material"`
	ManufacturingCountry  *string         `gorm:"type:varchar(255)" json:"manufacturing_country"`
	StockQuantity         int             `gorm:"not null" json:"stock_quantity"`
	IsAvailable           bool            `gorm:"not null;index" json:"is_available"`
	CategoryID            uint            `gorm:"not null;index" json:"category_id"`
	Category              *Category       `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
	ImagePath             *string         `gorm:"type:varchar(255)" json:"-"`
	Images                []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE;" json:"product_images,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ProductImage is a gallery entry scoped to exactly one product.
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	ImagePath string    `gorm:"type:varchar(255);not null" json:"-"`
	AltText   string    `gorm:"type:varchar(255)" json:"alt_text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
