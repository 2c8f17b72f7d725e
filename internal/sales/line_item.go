package sales

import (
	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	"github.com/shopspring/decimal"
)

// LineItem is one product and quantity within a sale. Price and policy are
// captured when the item is added so later catalog edits leave history alone.
type LineItem struct {
	ProductID int
	Name      string
	Category  enums.ProductCategory
	UnitPrice decimal.Decimal
	Policy    discount.Policy
	Quantity  int
}

// NewLineItem snapshots p for a sale of qty units.
func NewLineItem(p *product.Product, qty int) LineItem {
	return LineItem{
		ProductID: p.ID(),
		Name:      p.Name(),
		Category:  p.Category(),
		UnitPrice: p.UnitPrice(),
		Policy:    p.DiscountPolicy(),
		Quantity:  qty,
	}
}

func (li LineItem) ItemSubtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li LineItem) ItemDiscount() decimal.Decimal {
	return li.Policy.Apply(li.ItemSubtotal())
}

func (li LineItem) LineTotal() decimal.Decimal {
	return li.ItemSubtotal().Sub(li.ItemDiscount())
}
