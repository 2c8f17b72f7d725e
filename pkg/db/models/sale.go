package models

import "github.com/shopspring/decimal"

// Sale stores a finalized transaction with the totals it was saved with.
type Sale struct {
	ID             int             `gorm:"column:id;primaryKey;autoIncrement:false"`
	SaleDate       string          `gorm:"column:sale_date;not null"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:text;not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:text;not null"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:text;not null"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

func (Sale) TableName() string { return "sales" }

// SaleItem is one product/quantity pair of a sale, ordered by Position.
type SaleItem struct {
	ID        int `gorm:"column:id;primaryKey"`
	SaleID    int `gorm:"column:sale_id;not null"`
	Position  int `gorm:"column:position;not null"`
	ProductID int `gorm:"column:product_id;not null"`
	Quantity  int `gorm:"column:quantity;not null"`
}

func (SaleItem) TableName() string { return "sale_items" }
