package helpers

import (
	"sort"

	"github.com/angelmondragon/shopkeeper/internal/product"
	"github.com/angelmondragon/shopkeeper/internal/sales"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"go.uber.org/multierr"
)

// ValidateSale ensures the sale can still be processed.
func ValidateSale(s *sales.Sale) error {
	if s == nil {
		return pkgerrors.Validation("sale", "sale is required")
	}
	if s.IsFinalized() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is already finalized").
			WithDetails(map[string]any{"sale_id": s.ID()})
	}
	if len(s.Items()) == 0 {
		return pkgerrors.Validation("items", "sale contains no items")
	}
	return nil
}

// ApplyDecrements removes the wanted quantities from entries in place. Every
// product is checked; all failures are combined into one error. Callers pass
// working copies and discard them when an error is returned.
func ApplyDecrements(entries []*product.Product, wanted map[int]int) error {
	byID := make(map[int]*product.Product, len(entries))
	for _, p := range entries {
		byID[p.ID()] = p
	}

	ids := make([]int, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var errs error
	for _, id := range ids {
		qty := wanted[id]
		p, ok := byID[id]
		if !ok {
			errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id}))
			continue
		}
		if !p.DecreaseStock(qty) {
			errs = multierr.Append(errs, pkgerrors.New(pkgerrors.CodeConflict, "product quantity is not enough").
				WithDetails(map[string]any{"product_id": id, "requested": qty, "available": p.StockQuantity()}))
		}
	}
	return errs
}
