package handler

import (
	"errors"
	"net/http"

	"github.com/rl1809/zoo-retail/internal/core/domain"
	"github.com/rl1809/zoo-retail/internal/core/service"
)

// failure is the transport-neutral view of a service error.
type failure struct {
	Status        int
	Message       string
	TransactionID string
	FailedLines   []service.LineFailure
	Retryable     *bool
}

func classify(err error) failure {
	var cerr *service.CheckoutError
	if errors.As(err, &cerr) {
		retryable := cerr.Retryable()
		switch {
		case errors.Is(cerr.Kind, service.ErrPartialCommit):
			return failure{
				Status:        http.StatusConflict,
				Message:       "transaction recorded but stock was not fully updated",
				TransactionID: cerr.TransactionID,
				FailedLines:   cerr.Failed,
				Retryable:     &retryable,
			}
		case errors.Is(cerr.Kind, service.ErrLedgerUnavailable):
			return failure{Status: http.StatusServiceUnavailable, Message: "ledger unavailable, nothing was recorded", Retryable: &retryable}
		case errors.Is(cerr.Kind, service.ErrDuplicateCheckout):
			return failure{Status: http.StatusConflict, Message: "duplicate checkout", Retryable: &retryable}
		case errors.Is(cerr.Kind, service.ErrValidation):
			return failure{Status: http.StatusBadRequest, Message: cerr.Error()}
		}
	}

	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, domain.ErrInvalidQuantity):
		return failure{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, service.ErrForbidden):
		return failure{Status: http.StatusForbidden, Message: "insufficient permissions"}
	case errors.Is(err, service.ErrCartNotFound):
		return failure{Status: http.StatusNotFound, Message: "cart not found"}
	case errors.Is(err, service.ErrItemNotFound):
		return failure{Status: http.StatusNotFound, Message: "item not found"}
	case errors.Is(err, domain.ErrLineNotFound):
		return failure{Status: http.StatusNotFound, Message: "item is not in the cart"}
	}
	return failure{Status: http.StatusInternalServerError, Message: "internal error"}
}
