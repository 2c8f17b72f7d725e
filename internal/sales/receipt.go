package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/shopkeeper/pkg/types"
	"github.com/shopspring/decimal"
)

// Receipt is the human-readable summary produced when a sale is processed.
type Receipt struct {
	SaleID   int
	Date     time.Time
	Lines    []ReceiptLine
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

type ReceiptLine struct {
	Name      string
	Quantity  int
	LineTotal decimal.Decimal
}

// Receipt builds the receipt for the sale's current state.
func (s *Sale) Receipt() Receipt {
	lines := make([]ReceiptLine, 0, len(s.items))
	for _, item := range s.items {
		lines = append(lines, ReceiptLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return Receipt{
		SaleID:   s.id,
		Date:     s.date,
		Lines:    lines,
		Subtotal: s.totals.Subtotal,
		Discount: s.totals.DiscountAmount,
		Total:    s.totals.TotalAmount,
	}
}

func (r Receipt) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sale ID    :: %d\n", r.SaleID)
	fmt.Fprintf(&b, "Date       :: %s\n", types.FormatDate(r.Date))
	b.WriteString("Items      ::\n")
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "   - %-20s x%d = %s\n", line.Name, line.Quantity, line.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Subtotal   :: %s\n", r.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Discount   :: %s\n", r.Discount.StringFixed(2))
	fmt.Fprintf(&b, "Total      :: %s\n", r.Total.StringFixed(2))
	return b.String()
}
