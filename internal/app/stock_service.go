package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/minutmaidman/shopcore/internal/domain"
)

// StockStore persists stock records. Update runs fn with exclusive access to
// the product's record and commits the result only when fn returns nil.
// Updates for the same product serialize; different products do not contend.
type StockStore interface {
	Get(ctx context.Context, productID string) (domain.StockRecord, error)
	Update(ctx context.Context, productID string, fn func(*domain.StockRecord) error) error
	Put(ctx context.Context, rec domain.StockRecord) error
}

// StockService is the reservation ledger. It owns the reserved counter and
// the invariant reserved <= quantity.
type StockService struct {
	store  StockStore
	logger *zap.Logger
}

func NewStockService(store StockStore, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{store: store, logger: logger}
}

func (s *StockService) GetAvailability(ctx context.Context, productID string) (domain.StockRecord, error) {
	if productID == "" {
		return domain.StockRecord{}, domain.ErrInvalidID
	}
	return s.store.Get(ctx, productID)
}

// Reserve places a hold of quantity units against the product. It succeeds
// only if quantity - reserved covers the request at the instant of
// application.
func (s *StockService) Reserve(ctx context.Context, productID string, quantity uint) (uint, error) {
	if productID == "" {
		return 0, domain.ErrInvalidID
	}
	if quantity == 0 {
		return 0, domain.ErrInvalidQuantity
	}

	err := s.store.Update(ctx, productID, func(rec *domain.StockRecord) error {
		if rec.Available() < quantity {
			return domain.ErrInsufficientStock
		}
		rec.Reserved += quantity
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("stock reserved",
		zap.String("product_id", productID),
		zap.Uint("quantity", quantity),
	)
	return quantity, nil
}

// Release drops up to quantity units of the product's held stock. Releasing
// more than is currently reserved clamps to zero rather than failing, so
// repeated compensation calls stay safe.
func (s *StockService) Release(ctx context.Context, productID string, quantity uint) (uint, error) {
	if productID == "" {
		return 0, domain.ErrInvalidID
	}
	if quantity == 0 {
		return 0, domain.ErrInvalidQuantity
	}

	var released uint
	err := s.store.Update(ctx, productID, func(rec *domain.StockRecord) error {
		released = quantity
		if released > rec.Reserved {
			released = rec.Reserved
		}
		rec.Reserved -= released
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("stock released",
		zap.String("product_id", productID),
		zap.Uint("released", released),
	)
	return released, nil
}

// SetStock provisions or adjusts a product's on-hand quantity. Lowering the
// quantity below the currently reserved amount is rejected.
func (s *StockService) SetStock(ctx context.Context, productID string, quantity uint) (domain.StockRecord, error) {
	if productID == "" {
		return domain.StockRecord{}, domain.ErrInvalidID
	}

	var out domain.StockRecord
	err := s.store.Update(ctx, productID, func(rec *domain.StockRecord) error {
		if quantity < rec.Reserved {
			return domain.ErrInvalidQuantity
		}
		rec.Quantity = quantity
		out = *rec
		return nil
	})
	if errors.Is(err, domain.ErrProductNotFound) {
		out = domain.StockRecord{ProductID: productID, Quantity: quantity}
		if err := s.store.Put(ctx, out); err != nil {
			return domain.StockRecord{}, err
		}
		s.logger.Info("stock provisioned",
			zap.String("product_id", productID),
			zap.Uint("quantity", quantity),
		)
		return out, nil
	}
	if err != nil {
		return domain.StockRecord{}, err
	}
	return out, nil
}
