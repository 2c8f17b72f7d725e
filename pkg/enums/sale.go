package enums

import "fmt"

// SaleState tracks the lifecycle of a sale transaction.
type SaleState string

const (
	SaleStateOpen      SaleState = "open"
	SaleStateFinalized SaleState = "finalized"
)

var validSaleStates = []SaleState{
	SaleStateOpen,
	SaleStateFinalized,
}

// String implements fmt.Stringer.
func (s SaleState) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known SaleState.
func (s SaleState) IsValid() bool {
	for _, candidate := range validSaleStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleState converts raw input into a SaleState.
func ParseSaleState(value string) (SaleState, error) {
	for _, candidate := range validSaleStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale state %q", value)
}
