package sales

import (
	"time"

	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/types"
	"github.com/shopspring/decimal"
)

// Totals holds the derived amounts of a sale.
type Totals struct {
	ItemsSubtotal      decimal.Decimal
	ItemDiscountsTotal decimal.Decimal
	Subtotal           decimal.Decimal
	SaleDiscountAmount decimal.Decimal
	DiscountAmount     decimal.Decimal
	TotalAmount        decimal.Decimal
}

// Equal compares every amount numerically.
func (t Totals) Equal(other Totals) bool {
	return t.ItemsSubtotal.Equal(other.ItemsSubtotal) &&
		t.ItemDiscountsTotal.Equal(other.ItemDiscountsTotal) &&
		t.Subtotal.Equal(other.Subtotal) &&
		t.SaleDiscountAmount.Equal(other.SaleDiscountAmount) &&
		t.DiscountAmount.Equal(other.DiscountAmount) &&
		t.TotalAmount.Equal(other.TotalAmount)
}

// Sale aggregates line items and a sale-level discount. An open sale
// recomputes its totals on every mutation; a finalized sale is read-only.
type Sale struct {
	id     int
	date   time.Time
	items  []LineItem
	policy discount.Policy
	state  enums.SaleState
	totals Totals
}

// New opens an empty sale.
func New(id int, date time.Time, policy discount.Policy) (*Sale, error) {
	if id <= 0 {
		return nil, pkgerrors.Validation("id", "sale id must be greater than 0")
	}
	if date.IsZero() {
		return nil, pkgerrors.Validation("date", "sale date is required")
	}
	s := &Sale{
		id:     id,
		date:   types.DateOf(date),
		items:  []LineItem{},
		policy: policy,
		state:  enums.SaleStateOpen,
	}
	s.recalculate()
	return s, nil
}

// Restore rebuilds a historical sale with the totals it was saved with.
// The result is finalized and its totals are not recomputed.
func Restore(id int, date time.Time, items []LineItem, totals Totals) (*Sale, error) {
	if id <= 0 {
		return nil, pkgerrors.Validation("id", "sale id must be greater than 0")
	}
	if date.IsZero() {
		return nil, pkgerrors.Validation("date", "sale date is required")
	}
	copied := make([]LineItem, len(items))
	copy(copied, items)
	return &Sale{
		id:     id,
		date:   types.DateOf(date),
		items:  copied,
		policy: discount.None(),
		state:  enums.SaleStateFinalized,
		totals: totals,
	}, nil
}

func (s *Sale) ID() int                         { return s.id }
func (s *Sale) Date() time.Time                 { return s.date }
func (s *Sale) State() enums.SaleState          { return s.state }
func (s *Sale) IsFinalized() bool               { return s.state == enums.SaleStateFinalized }
func (s *Sale) DiscountPolicy() discount.Policy { return s.policy }
func (s *Sale) Totals() Totals                  { return s.totals }
func (s *Sale) Subtotal() decimal.Decimal       { return s.totals.Subtotal }
func (s *Sale) DiscountAmount() decimal.Decimal { return s.totals.DiscountAmount }
func (s *Sale) TotalAmount() decimal.Decimal    { return s.totals.TotalAmount }

// Items returns a copy of the line items in insertion order.
func (s *Sale) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// QuantityByProduct sums quantities per product id across line items.
func (s *Sale) QuantityByProduct() map[int]int {
	out := make(map[int]int, len(s.items))
	for _, item := range s.items {
		out[item.ProductID] += item.Quantity
	}
	return out
}

// AddLineItem appends qty units of p. The quantity is checked against p's
// current stock only, not against other items already in this sale.
func (s *Sale) AddLineItem(p *product.Product, qty int) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if p == nil {
		return pkgerrors.Validation("product", "product is required")
	}
	if qty <= 0 {
		return pkgerrors.Validation("quantity", "quantity must be greater than 0")
	}
	if qty > p.StockQuantity() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds available stock").
			WithDetails(map[string]any{"field": "quantity", "product_id": p.ID(), "requested": qty, "available": p.StockQuantity()})
	}
	s.items = append(s.items, NewLineItem(p, qty))
	s.recalculate()
	return nil
}

// RemoveLineItem drops the item at index. It reports false when the index is
// out of range or the sale is finalized.
func (s *Sale) RemoveLineItem(index int) bool {
	if s.IsFinalized() || index < 0 || index >= len(s.items) {
		return false
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	s.recalculate()
	return true
}

// RemoveLineItemByProductID drops every item for productID.
func (s *Sale) RemoveLineItemByProductID(productID int) bool {
	if s.IsFinalized() {
		return false
	}
	kept := s.items[:0]
	removed := false
	for _, item := range s.items {
		if item.ProductID == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	if removed {
		s.recalculate()
	}
	return removed
}

// SetDiscountPolicy replaces the sale-level policy and recomputes.
func (s *Sale) SetDiscountPolicy(policy discount.Policy) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	s.policy = policy
	s.recalculate()
	return nil
}

// Finalize moves the sale to its terminal state.
func (s *Sale) Finalize() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	s.state = enums.SaleStateFinalized
	return nil
}

// Clone returns an independent copy.
func (s *Sale) Clone() *Sale {
	cp := *s
	cp.items = s.Items()
	return &cp
}

func (s *Sale) ensureOpen() error {
	if s.IsFinalized() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is already finalized").
			WithDetails(map[string]any{"sale_id": s.id})
	}
	return nil
}

// recalculate derives every total from the items. Item discounts come off
// first; the sale policy then applies to the already discounted subtotal.
func (s *Sale) recalculate() {
	itemsSubtotal := decimal.Zero
	itemDiscounts := decimal.Zero
	for _, item := range s.items {
		itemsSubtotal = itemsSubtotal.Add(item.ItemSubtotal())
		itemDiscounts = itemDiscounts.Add(item.ItemDiscount())
	}
	subtotal := itemsSubtotal.Sub(itemDiscounts)
	saleDiscount := s.policy.Apply(subtotal)

	s.totals = Totals{
		ItemsSubtotal:      itemsSubtotal,
		ItemDiscountsTotal: itemDiscounts,
		Subtotal:           subtotal,
		SaleDiscountAmount: saleDiscount,
		DiscountAmount:     itemDiscounts.Add(saleDiscount),
		TotalAmount:        subtotal.Sub(saleDiscount),
	}
}
