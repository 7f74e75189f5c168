package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrPartialCommit     = errors.New("partial commit")
	ErrInsufficientStock = domain.ErrInsufficientStock
	ErrItemNotFound      = domain.ErrItemNotFound
	ErrDuplicateCheckout = errors.New("duplicate checkout")
	ErrNotAttempted      = errors.New("stock decrement not attempted")
	ErrCartNotFound      = errors.New("cart not found")
	ErrForbidden         = errors.New("forbidden")
)

// LineFailure describes a cart line whose stock was not decremented.
type LineFailure struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	Available *int   `json:"available,omitempty"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
}

// StockUpdate is a decrement the store applied.
type StockUpdate struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	NewCount int    `json:"new_count"`
}

// CheckoutError aggregates everything that went wrong in one checkout.
// Kind is one of ErrValidation, ErrDuplicateCheckout, ErrLedgerUnavailable or ErrPartialCommit.
type CheckoutError struct {
	Kind          error
	CheckoutID    string
	TransactionID string
	Failed        []LineFailure
	Applied       []StockUpdate
	Err           error
}

func (e *CheckoutError) Error() string {
	if errors.Is(e.Kind, ErrPartialCommit) {
		reasons := make([]string, 0, len(e.Failed))
		for _, f := range e.Failed {
			reasons = append(reasons, f.ItemID+": "+f.Reason)
		}
		msg := fmt.Sprintf("partial commit: transaction %s recorded, %d line(s) not decremented [%s]",
			e.TransactionID, len(e.Failed), strings.Join(reasons, "; "))
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *CheckoutError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	for _, f := range e.Failed {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Retryable reports whether a fresh checkout may be attempted. Only a failure
// before the transaction was recorded qualifies.
func (e *CheckoutError) Retryable() bool {
	return errors.Is(e.Kind, ErrLedgerUnavailable)
}

func (e *CheckoutError) FailedItemIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.ItemID)
	}
	return ids
}

func validationError(checkoutID, format string, args ...any) *CheckoutError {
	return &CheckoutError{Kind: ErrValidation, CheckoutID: checkoutID, Err: fmt.Errorf(format, args...)}
}
