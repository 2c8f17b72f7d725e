package recordstore

import (
	"testing"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixtureDay = time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// fixtureCatalog covers both product kinds and every discount variant.
func fixtureCatalog(t *testing.T) []*product.Product {
	t.Helper()
	pct, err := discount.Percentage(dec("12.5"))
	require.NoError(t, err)
	bxgy, err := discount.BuyXGetYFree(2, 1)
	require.NoError(t, err)

	params := []product.Params{
		{
			ID: 1, Name: "Milk", Category: enums.ProductCategoryDrinks, UnitPrice: dec("1.99"),
			StockQuantity: 20, LowStockThreshold: 5, Kind: enums.ProductKindPerishable,
			ExpiryDate: fixtureDay.AddDate(0, 0, 7), Discount: discount.None(),
		},
		{
			ID: 2, Name: "Kettle", Category: enums.ProductCategoryElectronics, UnitPrice: dec("24.50"),
			StockQuantity: 3, LowStockThreshold: 3, Kind: enums.ProductKindNonPerishable,
			WarrantyMonths: 24, Discount: pct,
		},
		{
			ID: 5, Name: "Bread Loaf", Category: enums.ProductCategoryFood, UnitPrice: dec("2.10"),
			StockQuantity: 0, LowStockThreshold: 2, Kind: enums.ProductKindPerishable,
			ExpiryDate: fixtureDay.AddDate(0, 0, -2), Discount: discount.Fixed(dec("0.35")),
		},
		{
			ID: 7, Name: "Soap", Category: enums.ProductCategoryCleaning, UnitPrice: dec("0.90"),
			StockQuantity: 100, LowStockThreshold: 10, Kind: enums.ProductKindNonPerishable,
			WarrantyMonths: 0, Discount: bxgy,
		},
	}
	out := make([]*product.Product, 0, len(params))
	for _, p := range params {
		entry, err := product.Restore(p)
		require.NoError(t, err)
		out = append(out, entry)
	}
	return out
}

func fixtureSale(t *testing.T, id int, catalog []*product.Product, policy discount.Policy, qty ...int) *sales.Sale {
	t.Helper()
	sale, err := sales.New(id, fixtureDay, policy)
	require.NoError(t, err)
	for i, q := range qty {
		if q == 0 {
			continue
		}
		require.NoError(t, sale.AddLineItem(catalog[i], q))
	}
	require.NoError(t, sale.Finalize())
	return sale
}

func requireSameCatalog(t *testing.T, want, got []*product.Product) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Truef(t, want[i].Equal(got[i]), "entry %d differs:\nwant %+v\n got %+v", i, want[i].Params(), got[i].Params())
	}
}
