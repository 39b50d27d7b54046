package domain

// StockRecord tracks on-hand and reserved quantity for a single product.
// Reserved never exceeds Quantity; the ledger is the only mutator.
type StockRecord struct {
	ProductID string
	Quantity  uint
	Reserved  uint
}

// Available is the quantity still open for new reservations.
func (s StockRecord) Available() uint {
	return s.Quantity - s.Reserved
}
