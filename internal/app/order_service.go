package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/minutmaidman/shopcore/internal/clock"
	"github.com/minutmaidman/shopcore/internal/domain"
)

// OrderStore persists orders. The orchestrator is the only writer; orders are
// never deleted. Put returns domain.ErrIdempotencyConflict when another order
// already holds the same idempotency key.
type OrderStore interface {
	Put(ctx context.Context, order domain.Order) error
	Get(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
}

// CartProvider is the external cart collaborator.
type CartProvider interface {
	GetCart(ctx context.Context, customerID string) (domain.CartSnapshot, error)
	ClearCart(ctx context.Context, customerID string) error
}

// StockReserver is the reservation ledger as seen by the orchestrator.
type StockReserver interface {
	Reserve(ctx context.Context, productID string, quantity uint) error
	Release(ctx context.Context, productID string, quantity uint) (uint, error)
}

// CartClearQueue hands failed cart clears to an out-of-band retry process.
type CartClearQueue interface {
	EnqueueClear(customerID string)
}

// OrderService drives the fulfillment sequence: fetch cart, reserve every
// line item, persist the order, clear the cart. A reservation failure midway
// releases everything reserved so far before the order is marked failed.
type OrderService struct {
	store      OrderStore
	cart       CartProvider
	stock      StockReserver
	clock      clock.Clock
	logger     *zap.Logger
	totaler    Totaler
	clearQueue CartClearQueue
}

func NewOrderService(store OrderStore, cart CartProvider, stock StockReserver, clk clock.Clock, logger *zap.Logger, opts ...OrderServiceOption) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &OrderService{
		store:   store,
		cart:    cart,
		stock:   stock,
		clock:   clk,
		logger:  logger,
		totaler: ItemCountTotal{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type OrderServiceOption func(*OrderService)

// WithTotaler overrides the order total policy.
func WithTotaler(t Totaler) OrderServiceOption {
	return func(s *OrderService) {
		if t != nil {
			s.totaler = t
		}
	}
}

// WithCartClearQueue routes failed cart clears to an out-of-band worker.
func WithCartClearQueue(q CartClearQueue) OrderServiceOption {
	return func(s *OrderService) {
		s.clearQueue = q
	}
}

type CreateOrderInput struct {
	CustomerID     string
	IdempotencyKey string
}

// CreateOrder runs one fulfillment attempt. A repeated idempotency key
// returns the existing order's current state instead of re-executing.
// On a reservation failure the returned order is in its failed state and the
// error carries the cause.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if in.CustomerID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}

	if in.IdempotencyKey != "" {
		existing, err := s.store.FindByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return domain.Order{}, err
		}
		if existing != nil {
			if existing.CustomerID != in.CustomerID {
				return domain.Order{}, domain.ErrIdempotencyConflict
			}
			return *existing, nil
		}
	}

	cart, err := s.cart.GetCart(ctx, in.CustomerID)
	if err != nil {
		s.logger.Warn("cart fetch failed",
			zap.String("customer_id", in.CustomerID),
			zap.Error(err),
		)
		return domain.Order{}, domain.ErrCartUnavailable
	}
	if len(cart.Items) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	now := s.clock.Now()
	items := make([]domain.OrderItem, len(cart.Items))
	for i, it := range cart.Items {
		items[i] = domain.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}

	order := domain.Order{
		ID:             newID(),
		CustomerID:     in.CustomerID,
		Items:          items,
		Status:         domain.OrderStatusPending,
		Total:          s.totaler.Total(items),
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Put(ctx, order); err != nil {
		// A concurrent retry with the same key may have won the race.
		if errors.Is(err, domain.ErrIdempotencyConflict) && in.IdempotencyKey != "" {
			existing, ferr := s.store.FindByIdempotencyKey(ctx, in.IdempotencyKey)
			if ferr != nil {
				return domain.Order{}, ferr
			}
			if existing != nil && existing.CustomerID == in.CustomerID {
				return *existing, nil
			}
		}
		return domain.Order{}, err
	}

	if err := s.transition(ctx, &order, domain.OrderStatusReserving, ""); err != nil {
		return order, err
	}

	reserved := make([]domain.OrderItem, 0, len(order.Items))
	var reserveErr error
	var failedProduct string
	for _, item := range order.Items {
		if err := s.stock.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			reserveErr = err
			failedProduct = item.ProductID
			break
		}
		reserved = append(reserved, item)
	}

	if reserveErr != nil {
		return s.fail(ctx, order, reserved, failedProduct, reserveErr)
	}

	// A store failure here would leave the reservations held with no durable
	// record of them, so it compensates like a reserve failure.
	if err := s.transition(ctx, &order, domain.OrderStatusReserved, ""); err != nil {
		return s.fail(ctx, order, reserved, "", fmt.Errorf("persist reserved state: %w", err))
	}

	// Clearing the cart is advisory cleanup: a failure here never demotes the
	// order, it is retried out of band.
	if err := s.cart.ClearCart(ctx, in.CustomerID); err != nil {
		s.logger.Warn("cart clear failed, scheduling retry",
			zap.String("order_id", order.ID),
			zap.String("customer_id", in.CustomerID),
			zap.Error(err),
		)
		if s.clearQueue != nil {
			s.clearQueue.EnqueueClear(in.CustomerID)
		}
	}

	if err := s.transition(ctx, &order, domain.OrderStatusConfirmed, ""); err != nil {
		// The order is durably reserved and the cart is gone; releasing now
		// would drop stock the customer is owed. Surface the stuck state.
		s.logger.Error("order stuck in reserved state, stock still held",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return order, err
	}

	s.logger.Info("order confirmed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", in.CustomerID),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

// fail rolls back every reservation that succeeded before the failing item,
// then parks the order in its terminal failed state. Compensation runs even
// when the inbound request has been cancelled.
func (s *OrderService) fail(ctx context.Context, order domain.Order, reserved []domain.OrderItem, failedProduct string, cause error) (domain.Order, error) {
	ctx = context.WithoutCancel(ctx)

	note := cause.Error()
	if failedProduct != "" {
		note = fmt.Sprintf("reserve %s: %v", failedProduct, cause)
	}
	if err := s.transition(ctx, &order, domain.OrderStatusCompensating, note); err != nil {
		s.logger.Error("status update failed during compensation",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	if compErr := s.releaseAll(ctx, order.ID, reserved); compErr != nil {
		note = note + "; " + compErr.Error()
		s.logger.Error("compensation failure, stock possibly leaked",
			zap.String("order_id", order.ID),
			zap.Error(compErr),
		)
	}

	if err := s.transition(ctx, &order, domain.OrderStatusFailed, note); err != nil {
		s.logger.Error("status update failed during compensation",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	s.logger.Warn("order failed",
		zap.String("order_id", order.ID),
		zap.String("product_id", failedProduct),
		zap.Error(cause),
	)
	return order, cause
}

// releaseAll releases the given reservations concurrently and collects every
// release that did not go through.
func (s *OrderService) releaseAll(ctx context.Context, orderID string, items []domain.OrderItem) *domain.CompensationError {
	if len(items) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		leaked []domain.LeakedReservation
	)
	for _, item := range items {
		wg.Add(1)
		go func(item domain.OrderItem) {
			defer wg.Done()
			if _, err := s.stock.Release(ctx, item.ProductID, item.Quantity); err != nil {
				mu.Lock()
				leaked = append(leaked, domain.LeakedReservation{
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
					Cause:     err,
				})
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()

	if len(leaked) == 0 {
		return nil
	}
	return &domain.CompensationError{OrderID: orderID, Leaked: leaked}
}

func (s *OrderService) transition(ctx context.Context, order *domain.Order, status domain.OrderStatus, note string) error {
	if err := s.store.UpdateStatus(ctx, order.ID, status, note); err != nil {
		return err
	}
	order.Status = status
	order.StatusNote = note
	order.UpdatedAt = s.clock.Now()
	return nil
}

// GetOrder returns the order's current snapshot.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.store.Get(ctx, orderID)
}

type UpdateStatusInput struct {
	OrderID string
	Status  domain.OrderStatus
}

// UpdateStatus applies an externally requested status change. Only forward
// transitions out of confirmed or shipped are accepted; cancelling a
// confirmed order releases every reserved item.
func (s *OrderService) UpdateStatus(ctx context.Context, in UpdateStatusInput) (domain.Order, error) {
	if in.OrderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}

	order, err := s.store.Get(ctx, in.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !in.Status.Valid() || !order.Status.CanTransitionTo(in.Status) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	note := ""
	if in.Status == domain.OrderStatusCancelled {
		if compErr := s.releaseAll(context.WithoutCancel(ctx), order.ID, order.Items); compErr != nil {
			note = compErr.Error()
			s.logger.Error("compensation failure on cancel, stock possibly leaked",
				zap.String("order_id", order.ID),
				zap.Error(compErr),
			)
		}
	}

	if err := s.transition(ctx, &order, in.Status, note); err != nil {
		return domain.Order{}, err
	}

	s.logger.Info("order status updated",
		zap.String("order_id", order.ID),
		zap.String("status", string(in.Status)),
	)
	return order, nil
}
