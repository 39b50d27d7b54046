package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrCartUnavailable     = errors.New("cart unavailable")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidID           = errors.New("invalid id")
)

// LeakedReservation is a reservation that could not be released during
// compensation. The quantity stays held at the ledger until reconciled
// out of band.
type LeakedReservation struct {
	ProductID string
	Quantity  uint
	Cause     error
}

// CompensationError reports release calls that failed while rolling back a
// partially reserved order.
type CompensationError struct {
	OrderID string
	Leaked  []LeakedReservation
}

func (e *CompensationError) Error() string {
	parts := make([]string, 0, len(e.Leaked))
	for _, l := range e.Leaked {
		parts = append(parts, fmt.Sprintf("%s x%d: %v", l.ProductID, l.Quantity, l.Cause))
	}
	return fmt.Sprintf("compensation failed for order %s: %s", e.OrderID, strings.Join(parts, "; "))
}
