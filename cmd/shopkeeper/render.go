package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/angelmondragon/shopkeeper/internal/checkout"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	"github.com/angelmondragon/shopkeeper/pkg/types"
)

func renderProducts(out io.Writer, entries []*product.Product) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tLOW\tTYPE\tDETAIL\tDISCOUNT")
	for _, p := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			p.ID(), p.Name(), p.Category(), p.UnitPrice().StringFixed(2),
			p.StockQuantity(), p.LowStockThreshold(), p.Kind(), detail(p), p.DiscountPolicy().Describe())
	}
	return w.Flush()
}

// detail renders the kind-specific payload.
func detail(p *product.Product) string {
	switch p.Kind() {
	case enums.ProductKindPerishable:
		date, _ := p.ExpiryDate()
		return "expires " + types.FormatDate(date)
	case enums.ProductKindNonPerishable:
		months, _ := p.WarrantyMonths()
		return strconv.Itoa(months) + " months warranty"
	default:
		return ""
	}
}

func renderSales(out io.Writer, history []*sales.Sale) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tITEMS\tSUBTOTAL\tDISCOUNT\tTOTAL")
	for _, s := range history {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			s.ID(), types.FormatDate(s.Date()), len(s.Items()),
			s.Subtotal().StringFixed(2), s.DiscountAmount().StringFixed(2), s.TotalAmount().StringFixed(2))
	}
	return w.Flush()
}

func renderSummary(out io.Writer, summary checkout.Summary) {
	fmt.Fprintf(out, "Total Sales: %d\n", summary.SaleCount)
	fmt.Fprintf(out, "Total Revenue: %s\n", summary.Revenue.StringFixed(2))
	fmt.Fprintf(out, "Average Sale Value: %s\n", summary.Average.StringFixed(2))
	fmt.Fprintln(out, "\nRevenue by Category")
	for _, entry := range summary.ByCategory {
		fmt.Fprintf(out, "%s: %s\n", entry.Category, entry.Revenue.StringFixed(2))
	}
	if summary.HasBest {
		fmt.Fprintf(out, "\nBest Selling Category: %s\n", summary.BestCategory)
	}
}

func renderRanking(out io.Writer, ranked []checkout.ProductSales) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSOLD")
	for _, entry := range ranked {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", entry.Product.ID(), entry.Product.Name(), entry.Product.Category(), entry.Quantity)
	}
	return w.Flush()
}
