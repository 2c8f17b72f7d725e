package main

import (
	"fmt"
	"strconv"
	"strings"
)

type itemSpec struct {
	productID int
	quantity  int
}

// itemList collects repeated --item id:qty flags.
type itemList []itemSpec

func (l *itemList) String() string {
	parts := make([]string, 0, len(*l))
	for _, item := range *l {
		parts = append(parts, fmt.Sprintf("%d:%d", item.productID, item.quantity))
	}
	return strings.Join(parts, ",")
}

func (l *itemList) Set(value string) error {
	id, qty, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return fmt.Errorf("item expects id:qty, got %q", value)
	}
	productID, err := strconv.Atoi(id)
	if err != nil {
		return fmt.Errorf("invalid product id %q", id)
	}
	quantity, err := strconv.Atoi(qty)
	if err != nil {
		return fmt.Errorf("invalid quantity %q", qty)
	}
	*l = append(*l, itemSpec{productID: productID, quantity: quantity})
	return nil
}
