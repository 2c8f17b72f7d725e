package catalog

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/angelmondragon/shopkeeper/internal/discount"
	"github.com/angelmondragon/shopkeeper/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// AddProductInput holds the attributes of a new catalog entry. The id is
// assigned by the service.
type AddProductInput struct {
	Name              string                `json:"name" validate:"required,excludesall=0x2C"`
	Category          enums.ProductCategory `json:"category" validate:"required,product_category"`
	UnitPrice         decimal.Decimal       `json:"unit_price"`
	StockQuantity     int                   `json:"stock_quantity" validate:"gte=0"`
	LowStockThreshold int                   `json:"low_stock_threshold" validate:"gte=0"`
	Kind              enums.ProductKind     `json:"type" validate:"required,product_kind"`
	ExpiryDate        time.Time             `json:"expiry_date"`
	WarrantyMonths    int                   `json:"warranty_months" validate:"gte=0"`
	Discount          discount.Policy       `json:"-"`
}

// UpdateProductInput holds optional edits; nil fields are left alone.
type UpdateProductInput struct {
	Name              *string                `json:"name" validate:"omitempty,excludesall=0x2C"`
	Category          *enums.ProductCategory `json:"category" validate:"omitempty,product_category"`
	UnitPrice         *decimal.Decimal       `json:"unit_price"`
	LowStockThreshold *int                   `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	ExpiryDate        *time.Time             `json:"expiry_date"`
	WarrantyMonths    *int                   `json:"warranty_months" validate:"omitempty,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("product_category", func(fl validator.FieldLevel) bool {
		return enums.ProductCategory(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("product_kind", func(fl validator.FieldLevel) bool {
		return enums.ProductKind(fl.Field().String()).IsValid()
	})
	return v
}

// validateInput runs the struct tags and reports the first violated field.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	first := errs[0]
	return pkgerrors.Validation(first.Field(), fmt.Sprintf("%s %s", first.Field(), validationMessage(first)))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "excludesall":
		return "cannot contain commas"
	case "product_category":
		return "must be one of FOOD, DRINKS, ELECTRONICS, CLEANING, OTHER"
	case "product_kind":
		return "must be PERISHABLE or NON_PERISHABLE"
	}
	return "is invalid"
}
