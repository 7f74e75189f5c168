package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotFound      = errors.New("item not found")
	ErrOutOfStock        = errors.New("item out of stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrLineNotFound      = errors.New("cart line not found")
)

// StockShortage is returned by the catalog store when a conditional decrement
// was rejected. Available is the count observed after the rejection.
type StockShortage struct {
	ItemID    string
	Requested int
	Available int
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ItemID, e.Requested, e.Available)
}

func (e *StockShortage) Is(target error) bool {
	return target == ErrInsufficientStock
}
