package domain

import "github.com/shopspring/decimal"

// CartItem is one line of a customer's cart.
type CartItem struct {
	ProductID string
	Quantity  uint
	UnitPrice decimal.Decimal
}

// CartSnapshot is a read-only view of a customer's cart taken at the start of
// a fulfillment attempt. The cart service owns the live cart; the snapshot is
// copied by value and never written back.
type CartSnapshot struct {
	CustomerID string
	Items      []CartItem
}
