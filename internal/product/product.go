package product

import (
	"strings"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/angelmondragon/shopkeeper/pkg/types"
	"github.com/shopspring/decimal"
)

// DefaultNearExpiryDays is the window in which a perishable counts as near expiry.
const DefaultNearExpiryDays = 4

// Params carries the raw attributes of a catalog entry.
type Params struct {
	ID                int
	Name              string
	Category          enums.ProductCategory
	UnitPrice         decimal.Decimal
	StockQuantity     int
	LowStockThreshold int
	Kind              enums.ProductKind
	ExpiryDate        time.Time
	WarrantyMonths    int
	Discount          discount.Policy
}

// Product is a catalog entry. Exactly one of expiryDate or warrantyMonths is
// meaningful, selected by kind.
type Product struct {
	id                int
	name              string
	category          enums.ProductCategory
	unitPrice         decimal.Decimal
	stockQuantity     int
	lowStockThreshold int
	kind              enums.ProductKind
	expiryDate        time.Time
	warrantyMonths    int
	policy            discount.Policy
}

// New validates params for a freshly created entry. Perishables must not
// already be expired relative to today.
func New(params Params, today time.Time) (*Product, error) {
	if err := validateID(params.ID); err != nil {
		return nil, err
	}
	if err := CheckNew(params, today); err != nil {
		return nil, err
	}
	return build(params), nil
}

// CheckNew applies every rule of New except the id check, so a caller can
// reject bad input before allocating an id.
func CheckNew(params Params, today time.Time) error {
	if err := validateFields(params); err != nil {
		return err
	}
	if params.Kind == enums.ProductKindPerishable && types.DateOf(params.ExpiryDate).Before(types.DateOf(today)) {
		return pkgerrors.Validation("expiry_date", "expiry date must be today or a future date")
	}
	return nil
}

// Restore rebuilds an entry read back from storage. It applies every check of
// New except the expiry-in-the-past rule so expired stock stays visible.
func Restore(params Params) (*Product, error) {
	if err := validateID(params.ID); err != nil {
		return nil, err
	}
	if err := validateFields(params); err != nil {
		return nil, err
	}
	return build(params), nil
}

func build(params Params) *Product {
	p := &Product{
		id:                params.ID,
		name:              strings.TrimSpace(params.Name),
		category:          params.Category,
		unitPrice:         params.UnitPrice,
		stockQuantity:     params.StockQuantity,
		lowStockThreshold: params.LowStockThreshold,
		kind:              params.Kind,
		policy:            params.Discount,
	}
	switch params.Kind {
	case enums.ProductKindPerishable:
		p.expiryDate = types.DateOf(params.ExpiryDate)
	case enums.ProductKindNonPerishable:
		p.warrantyMonths = params.WarrantyMonths
	}
	return p
}

func validateID(id int) error {
	if id <= 0 {
		return pkgerrors.Validation("id", "product id must be greater than 0")
	}
	return nil
}

func validateFields(params Params) error {
	if strings.TrimSpace(params.Name) == "" {
		return pkgerrors.Validation("name", "product name cannot be empty")
	}
	if !params.Category.IsValid() {
		return pkgerrors.Validation("category", "category cannot be empty")
	}
	if params.UnitPrice.IsNegative() {
		return pkgerrors.Validation("unit_price", "unit price cannot be negative")
	}
	if params.StockQuantity < 0 {
		return pkgerrors.Validation("stock_quantity", "stock quantity cannot be negative")
	}
	if params.LowStockThreshold < 0 {
		return pkgerrors.Validation("low_stock_threshold", "low stock threshold cannot be negative")
	}
	switch params.Kind {
	case enums.ProductKindPerishable:
		if params.ExpiryDate.IsZero() {
			return pkgerrors.Validation("expiry_date", "expiry date is required")
		}
	case enums.ProductKindNonPerishable:
		if params.WarrantyMonths < 0 {
			return pkgerrors.Validation("warranty_months", "warranty months cannot be negative")
		}
	default:
		return pkgerrors.Validation("type", "product type must be PERISHABLE or NON_PERISHABLE")
	}
	return nil
}

func (p *Product) ID() int                         { return p.id }
func (p *Product) Name() string                    { return p.name }
func (p *Product) Category() enums.ProductCategory { return p.category }
func (p *Product) UnitPrice() decimal.Decimal      { return p.unitPrice }
func (p *Product) StockQuantity() int              { return p.stockQuantity }
func (p *Product) LowStockThreshold() int          { return p.lowStockThreshold }
func (p *Product) Kind() enums.ProductKind         { return p.kind }
func (p *Product) DiscountPolicy() discount.Policy { return p.policy }

// ExpiryDate reports the expiry of a perishable; ok is false otherwise.
func (p *Product) ExpiryDate() (time.Time, bool) {
	if p.kind != enums.ProductKindPerishable {
		return time.Time{}, false
	}
	return p.expiryDate, true
}

// WarrantyMonths reports the warranty of a non-perishable; ok is false otherwise.
func (p *Product) WarrantyMonths() (int, bool) {
	if p.kind != enums.ProductKindNonPerishable {
		return 0, false
	}
	return p.warrantyMonths, true
}

// Params returns the entry's attributes, the inverse of Restore.
func (p *Product) Params() Params {
	return Params{
		ID:                p.id,
		Name:              p.name,
		Category:          p.category,
		UnitPrice:         p.unitPrice,
		StockQuantity:     p.stockQuantity,
		LowStockThreshold: p.lowStockThreshold,
		Kind:              p.kind,
		ExpiryDate:        p.expiryDate,
		WarrantyMonths:    p.warrantyMonths,
		Discount:          p.policy,
	}
}

// Clone returns an independent copy.
func (p *Product) Clone() *Product {
	cp := *p
	return &cp
}

// Equal compares every attribute, including the discount parameters.
func (p *Product) Equal(other *Product) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.id == other.id &&
		p.name == other.name &&
		p.category == other.category &&
		p.unitPrice.Equal(other.unitPrice) &&
		p.stockQuantity == other.stockQuantity &&
		p.lowStockThreshold == other.lowStockThreshold &&
		p.kind == other.kind &&
		p.expiryDate.Equal(other.expiryDate) &&
		p.warrantyMonths == other.warrantyMonths &&
		p.policy.Equal(other.policy)
}

// IncreaseStock adds n units. It reports false and changes nothing when n <= 0.
func (p *Product) IncreaseStock(n int) bool {
	if n <= 0 {
		return false
	}
	p.stockQuantity += n
	return true
}

// DecreaseStock removes n units. It reports false and changes nothing when
// n <= 0 or n exceeds the stock on hand.
func (p *Product) DecreaseStock(n int) bool {
	if n <= 0 || n > p.stockQuantity {
		return false
	}
	p.stockQuantity -= n
	return true
}

func (p *Product) SetStockQuantity(qty int) error {
	if qty < 0 {
		return pkgerrors.Validation("stock_quantity", "stock quantity cannot be negative")
	}
	p.stockQuantity = qty
	return nil
}

// SetDiscountPolicy replaces the policy. The zero Policy means no discount.
func (p *Product) SetDiscountPolicy(policy discount.Policy) {
	if !policy.IsActive() {
		policy = discount.None()
	}
	p.policy = policy
}

func (p *Product) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.Validation("name", "product name cannot be empty")
	}
	p.name = strings.TrimSpace(name)
	return nil
}

func (p *Product) SetUnitPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.Validation("unit_price", "unit price cannot be negative")
	}
	p.unitPrice = price
	return nil
}

func (p *Product) SetLowStockThreshold(threshold int) error {
	if threshold < 0 {
		return pkgerrors.Validation("low_stock_threshold", "low stock threshold cannot be negative")
	}
	p.lowStockThreshold = threshold
	return nil
}

func (p *Product) SetCategory(category enums.ProductCategory) error {
	if !category.IsValid() {
		return pkgerrors.Validation("category", "category cannot be empty")
	}
	p.category = category
	return nil
}

func (p *Product) SetExpiryDate(date, today time.Time) error {
	if p.kind != enums.ProductKindPerishable {
		return pkgerrors.Validation("expiry_date", "only perishable products have an expiry date")
	}
	if date.IsZero() || types.DateOf(date).Before(types.DateOf(today)) {
		return pkgerrors.Validation("expiry_date", "expiry date must be today or a future date")
	}
	p.expiryDate = types.DateOf(date)
	return nil
}

func (p *Product) SetWarrantyMonths(months int) error {
	if p.kind != enums.ProductKindNonPerishable {
		return pkgerrors.Validation("warranty_months", "only non-perishable products carry a warranty")
	}
	if months < 0 {
		return pkgerrors.Validation("warranty_months", "warranty months cannot be negative")
	}
	p.warrantyMonths = months
	return nil
}

// DiscountedUnitPrice is the unit price after the entry's own policy.
func (p *Product) DiscountedUnitPrice() decimal.Decimal {
	return p.unitPrice.Sub(p.policy.Apply(p.unitPrice))
}

func (p *Product) IsDiscountEligible() bool {
	return p.policy.IsActive()
}

func (p *Product) IsLowStock() bool {
	return p.stockQuantity <= p.lowStockThreshold
}

// IsExpired is true for perishables whose expiry date is before today.
func (p *Product) IsExpired(today time.Time) bool {
	switch p.kind {
	case enums.ProductKindPerishable:
		return p.expiryDate.Before(types.DateOf(today))
	default:
		return false
	}
}

// IsNearExpiry is true for unexpired perishables expiring before today+days.
func (p *Product) IsNearExpiry(today time.Time, days int) bool {
	switch p.kind {
	case enums.ProductKindPerishable:
		if p.IsExpired(today) {
			return false
		}
		return p.expiryDate.Before(types.DateOf(today).AddDate(0, 0, days))
	default:
		return false
	}
}
