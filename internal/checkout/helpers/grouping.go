package helpers

import (
	"github.com/angelmondragon/shopkeeper/internal/sales"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	"github.com/shopspring/decimal"
)

// CategoryRevenue is the summed line totals of one category.
type CategoryRevenue struct {
	Category enums.ProductCategory
	Revenue  decimal.Decimal
}

// QuantitiesSold sums the quantity sold per product id across history.
func QuantitiesSold(history []*sales.Sale) map[int]int {
	totals := make(map[int]int)
	for _, s := range history {
		for id, qty := range s.QuantityByProduct() {
			totals[id] += qty
		}
	}
	return totals
}

// RevenueByCategory sums line totals per category. Only categories that
// appear in history are returned, in category declaration order.
func RevenueByCategory(history []*sales.Sale) []CategoryRevenue {
	sums := make(map[enums.ProductCategory]decimal.Decimal)
	for _, s := range history {
		for _, item := range s.Items() {
			current, ok := sums[item.Category]
			if !ok {
				current = decimal.Zero
			}
			sums[item.Category] = current.Add(item.LineTotal())
		}
	}

	out := make([]CategoryRevenue, 0, len(sums))
	for _, category := range enums.ProductCategories() {
		if revenue, ok := sums[category]; ok {
			out = append(out, CategoryRevenue{Category: category, Revenue: revenue})
		}
	}
	return out
}

// BestCategory returns the first category holding the strictly highest revenue.
func BestCategory(revenues []CategoryRevenue) (enums.ProductCategory, bool) {
	var (
		best  enums.ProductCategory
		top   decimal.Decimal
		found bool
	)
	for _, entry := range revenues {
		if !found || entry.Revenue.GreaterThan(top) {
			best = entry.Category
			top = entry.Revenue
			found = true
		}
	}
	return best, found
}

// SubtotalRevenue sums the subtotal of every sale.
func SubtotalRevenue(history []*sales.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range history {
		total = total.Add(s.Subtotal())
	}
	return total
}
