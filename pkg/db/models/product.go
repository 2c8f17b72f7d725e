package models

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkeeper/pkg/enums"
)

// Product is the catalog row. The subtype payload lives in ExpiryDate or
// WarrantyMonths depending on Kind; the discount is stored in its record form.
type Product struct {
	ID                int                   `gorm:"column:id;primaryKey;autoIncrement:false"`
	Position          int                   `gorm:"column:position;not null"`
	Name              string                `gorm:"column:name;not null"`
	Category          enums.ProductCategory `gorm:"column:category;not null"`
	UnitPrice         decimal.Decimal       `gorm:"column:unit_price;type:text;not null"`
	StockQuantity     int                   `gorm:"column:stock_quantity;not null"`
	LowStockThreshold int                   `gorm:"column:low_stock_threshold;not null"`
	Kind              enums.ProductKind     `gorm:"column:kind;not null"`
	ExpiryDate        *string               `gorm:"column:expiry_date"`
	WarrantyMonths    *int                  `gorm:"column:warranty_months"`
	DiscountType      string                `gorm:"column:discount_type;not null;default:'NONE'"`
	DiscountParams    string                `gorm:"column:discount_params;not null;default:''"`
}

func (Product) TableName() string { return "products" }
