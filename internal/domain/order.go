package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusReserving    OrderStatus = "reserving"
	OrderStatusReserved     OrderStatus = "reserved"
	OrderStatusConfirmed    OrderStatus = "confirmed"
	OrderStatusCompensating OrderStatus = "compensating"
	OrderStatusFailed       OrderStatus = "failed"
	OrderStatusShipped      OrderStatus = "shipped"
	OrderStatusDelivered    OrderStatus = "delivered"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// externalTransitions lists the status changes a caller may request through
// the API. Everything else is driven internally by the fulfillment flow.
var externalTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// CanTransitionTo reports whether an externally requested change from s to
// target is allowed.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range externalTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Valid reports whether the status is one of the known values.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusReserving, OrderStatusReserved,
		OrderStatusConfirmed, OrderStatusCompensating, OrderStatusFailed,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is one line of an order, copied from the cart snapshot at
// creation time.
type OrderItem struct {
	ProductID string
	Quantity  uint
	UnitPrice decimal.Decimal
}

// Order is the record of one fulfillment attempt. Only Status and StatusNote
// change after creation; orders are never deleted.
type Order struct {
	ID             string
	CustomerID     string
	Items          []OrderItem
	Status         OrderStatus
	Total          decimal.Decimal
	StatusNote     string
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
