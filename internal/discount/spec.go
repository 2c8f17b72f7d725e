package discount

import (
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/shopkeeper/pkg/errors"
	"github.com/shopspring/decimal"
)

// ParseSpec reads the short operator form used on the command line:
// "none", "percent:10", "fixed:2.50" or "bxgy:2:1".
func ParseSpec(spec string) (Policy, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(spec)), ":")
	switch parts[0] {
	case "", "none":
		return None(), nil
	case "percent", "percentage":
		if len(parts) != 2 {
			return Policy{}, pkgerrors.Validation("discount", "percent discount expects percent:<value>")
		}
		value, err := decimal.NewFromString(parts[1])
		if err != nil {
			return Policy{}, pkgerrors.Validation("percent", "discount percentage must be a number")
		}
		return Percentage(value)
	case "fixed":
		if len(parts) != 2 {
			return Policy{}, pkgerrors.Validation("discount", "fixed discount expects fixed:<amount>")
		}
		value, err := decimal.NewFromString(parts[1])
		if err != nil {
			return Policy{}, pkgerrors.Validation("amount", "discount amount must be a number")
		}
		return Fixed(value), nil
	case "bxgy", "buyxgetyfree":
		if len(parts) != 3 {
			return Policy{}, pkgerrors.Validation("discount", "buy-x-get-y discount expects bxgy:<buy>:<free>")
		}
		buy, err := strconv.Atoi(parts[1])
		if err != nil {
			return Policy{}, pkgerrors.Validation("buy_qty", "buy quantity must be an integer")
		}
		free, err := strconv.Atoi(parts[2])
		if err != nil {
			return Policy{}, pkgerrors.Validation("free_qty", "free quantity must be an integer")
		}
		return BuyXGetYFree(buy, free)
	}
	return Policy{}, pkgerrors.Validation("discount", "unknown discount type "+strconv.Quote(spec))
}
