package app

import (
	"github.com/shopspring/decimal"

	"github.com/minutmaidman/shopcore/internal/domain"
)

// Totaler computes an order total from its line items. The policy is
// pluggable because the legacy rule below is suspected to be a placeholder.
type Totaler interface {
	Total(items []domain.OrderItem) decimal.Decimal
}

// ItemCountTotal reproduces the legacy cart rule: the total is the number of
// distinct line items. Default until pricing semantics are settled.
type ItemCountTotal struct{}

func (ItemCountTotal) Total(items []domain.OrderItem) decimal.Decimal {
	return decimal.NewFromInt(int64(len(items)))
}

// UnitPriceTotal sums unit price times quantity across all line items.
type UnitPriceTotal struct{}

func (UnitPriceTotal) Total(items []domain.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
