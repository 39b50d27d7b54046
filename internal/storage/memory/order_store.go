package memory

import (
	"context"
	"sync"
	"time"

	"github.com/minutmaidman/shopcore/internal/domain"
)

// OrderStore keeps orders in process memory.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	byKey  map[string]string
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]domain.Order),
		byKey:  make(map[string]string),
	}
}

func (s *OrderStore) Put(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.IdempotencyKey != "" {
		if _, exists := s.byKey[order.IdempotencyKey]; exists {
			return domain.ErrIdempotencyConflict
		}
		s.byKey[order.IdempotencyKey] = order.ID
	}
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *OrderStore) Get(_ context.Context, orderID string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (s *OrderStore) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	order.StatusNote = note
	order.UpdatedAt = time.Now().UTC()
	s.orders[orderID] = order
	return nil
}

func (s *OrderStore) FindByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	order := cloneOrder(s.orders[id])
	return &order, nil
}

func cloneOrder(order domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}
