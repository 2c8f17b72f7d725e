package checkout

import (
	"sort"

	"github.com/angelmondragon/shopkeeper/internal/checkout/helpers"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	"github.com/shopspring/decimal"
)

// ProductSales pairs a catalog entry with the units sold across history.
type ProductSales struct {
	Product  *product.Product
	Quantity int
}

// Summary is the aggregate sales report.
type Summary struct {
	SaleCount    int
	Revenue      decimal.Decimal
	Average      decimal.Decimal
	ByCategory   []helpers.CategoryRevenue
	BestCategory enums.ProductCategory
	HasBest      bool
}

// TopSelling returns up to n catalog entries ranked by units sold, highest
// first. Ties keep catalog order.
func (m *Manager) TopSelling(n int) []ProductSales {
	return m.rank(n, func(a, b int) bool { return a > b })
}

// LeastSelling is TopSelling in ascending order. Entries that never sold rank first.
func (m *Manager) LeastSelling(n int) []ProductSales {
	return m.rank(n, func(a, b int) bool { return a < b })
}

func (m *Manager) rank(n int, before func(a, b int) bool) []ProductSales {
	if n <= 0 {
		return []ProductSales{}
	}
	m.mu.RLock()
	sold := helpers.QuantitiesSold(m.history)
	m.mu.RUnlock()

	catalog := m.inventory.Snapshot()
	ranked := make([]ProductSales, len(catalog))
	for i, p := range catalog {
		ranked[i] = ProductSales{Product: p, Quantity: sold[p.ID()]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return before(ranked[i].Quantity, ranked[j].Quantity)
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// ProductSalesCount returns the units of productID sold across history.
func (m *Manager) ProductSalesCount(productID int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return helpers.QuantitiesSold(m.history)[productID]
}

// RevenueByCategory sums line totals per category for categories that sold.
func (m *Manager) RevenueByCategory() []helpers.CategoryRevenue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return helpers.RevenueByCategory(m.history)
}

func (m *Manager) BestSellingCategory() (enums.ProductCategory, bool) {
	return helpers.BestCategory(m.RevenueByCategory())
}

// Summary reports the sale count, revenue as the sum of sale subtotals, the
// average sale value, and revenue per category.
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	revenue := helpers.SubtotalRevenue(m.history)
	average := decimal.Zero
	if len(m.history) > 0 {
		average = revenue.DivRound(decimal.NewFromInt(int64(len(m.history))), 2)
	}
	byCategory := helpers.RevenueByCategory(m.history)
	best, ok := helpers.BestCategory(byCategory)
	return Summary{
		SaleCount:    len(m.history),
		Revenue:      revenue,
		Average:      average,
		ByCategory:   byCategory,
		BestCategory: best,
		HasBest:      ok,
	}
}
