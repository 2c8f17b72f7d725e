package enums

import (
	"fmt"
	"strings"
)

// ProductCategory represents the fixed set of catalog categories.
type ProductCategory string

const (
	ProductCategoryFood        ProductCategory = "FOOD"
	ProductCategoryDrinks      ProductCategory = "DRINKS"
	ProductCategoryElectronics ProductCategory = "ELECTRONICS"
	ProductCategoryCleaning    ProductCategory = "CLEANING"
	ProductCategoryOther       ProductCategory = "OTHER"
)

var validProductCategories = []ProductCategory{
	ProductCategoryFood,
	ProductCategoryDrinks,
	ProductCategoryElectronics,
	ProductCategoryCleaning,
	ProductCategoryOther,
}

// ProductCategories returns every category in declaration order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory, ignoring case.
func ParseProductCategory(value string) (ProductCategory, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validProductCategories {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// ProductKind discriminates perishable from non-perishable catalog entries.
type ProductKind string

const (
	ProductKindPerishable    ProductKind = "PERISHABLE"
	ProductKindNonPerishable ProductKind = "NON_PERISHABLE"
)

var validProductKinds = []ProductKind{
	ProductKindPerishable,
	ProductKindNonPerishable,
}

// String implements fmt.Stringer.
func (k ProductKind) String() string {
	return string(k)
}

// IsValid reports whether the value matches a known ProductKind.
func (k ProductKind) IsValid() bool {
	for _, candidate := range validProductKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseProductKind converts raw input into a ProductKind. The legacy
// "Perishable"/"NonPerishable" spellings are accepted as well.
func ParseProductKind(value string) (ProductKind, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch normalized {
	case "PERISHABLE":
		return ProductKindPerishable, nil
	case "NON_PERISHABLE", "NONPERISHABLE":
		return ProductKindNonPerishable, nil
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}
