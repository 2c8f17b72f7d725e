package discount

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/shopspring/decimal"
)

// Kind identifies a discount variant.
type Kind string

const (
	KindNone         Kind = "NONE"
	KindPercentage   Kind = "PERCENTAGE_DISCOUNT"
	KindFixed        Kind = "FIXED_DISCOUNT"
	KindBuyXGetYFree Kind = "BUY_X_GET_Y_FREE"
)

var validKinds = []Kind{
	KindNone,
	KindPercentage,
	KindFixed,
	KindBuyXGetYFree,
}

var hundred = decimal.NewFromInt(100)

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known Kind.
func (k Kind) IsValid() bool {
	for _, candidate := range validKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseKind converts raw input into a Kind.
func ParseKind(value string) (Kind, error) {
	for _, candidate := range validKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}

// Policy is an immutable discount strategy. The zero value is NoDiscount.
type Policy struct {
	kind    Kind
	percent decimal.Decimal
	amount  decimal.Decimal
	buyQty  int
	freeQty int
}

// None returns the policy that never discounts.
func None() Policy {
	return Policy{kind: KindNone}
}

// Percentage discounts percent/100 of the base. percent must lie in (0, 100].
func Percentage(percent decimal.Decimal) (Policy, error) {
	if !percent.IsPositive() || percent.GreaterThan(hundred) {
		return Policy{}, pkgerrors.Validation("percent", "discount percentage must be greater than 0 and at most 100")
	}
	return Policy{kind: KindPercentage, percent: percent}, nil
}

// Fixed discounts a flat amount, never more than the base. Negative amounts collapse to zero.
func Fixed(amount decimal.Decimal) Policy {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return Policy{kind: KindFixed, amount: amount}
}

// BuyXGetYFree discounts the average free ratio y/(x+y) of the base.
func BuyXGetYFree(buyQty, freeQty int) (Policy, error) {
	if buyQty <= 0 {
		return Policy{}, pkgerrors.Validation("buy_qty", "buy quantity must be greater than 0")
	}
	if freeQty <= 0 {
		return Policy{}, pkgerrors.Validation("free_qty", "free quantity must be greater than 0")
	}
	return Policy{kind: KindBuyXGetYFree, buyQty: buyQty, freeQty: freeQty}, nil
}

// Kind returns the variant, treating the zero value as KindNone.
func (p Policy) Kind() Kind {
	if p.kind == "" {
		return KindNone
	}
	return p.kind
}

func (p Policy) Percent() decimal.Decimal { return p.percent }
func (p Policy) Amount() decimal.Decimal  { return p.amount }
func (p Policy) BuyQty() int              { return p.buyQty }
func (p Policy) FreeQty() int             { return p.freeQty }

// IsActive is false only for NoDiscount.
func (p Policy) IsActive() bool {
	return p.Kind() != KindNone
}

// Apply returns the discount amount for base. The result is never negative.
func (p Policy) Apply(base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	switch p.Kind() {
	case KindPercentage:
		return base.Mul(p.percent).Div(hundred)
	case KindFixed:
		return decimal.Min(decimal.Max(p.amount, decimal.Zero), base)
	case KindBuyXGetYFree:
		total := decimal.NewFromInt(int64(p.buyQty + p.freeQty))
		return base.Mul(decimal.NewFromInt(int64(p.freeQty))).Div(total)
	default:
		return decimal.Zero
	}
}

// Equal reports whether two policies are the same variant with the same parameters.
func (p Policy) Equal(other Policy) bool {
	if p.Kind() != other.Kind() {
		return false
	}
	switch p.Kind() {
	case KindPercentage:
		return p.percent.Equal(other.percent)
	case KindFixed:
		return p.amount.Equal(other.amount)
	case KindBuyXGetYFree:
		return p.buyQty == other.buyQty && p.freeQty == other.freeQty
	default:
		return true
	}
}

// Describe renders the policy for listings and receipts.
func (p Policy) Describe() string {
	switch p.Kind() {
	case KindPercentage:
		return fmt.Sprintf("%s%% off", p.percent.String())
	case KindFixed:
		return fmt.Sprintf("%s off", p.amount.StringFixed(2))
	case KindBuyXGetYFree:
		return fmt.Sprintf("buy %d get %d free", p.buyQty, p.freeQty)
	default:
		return "none"
	}
}
