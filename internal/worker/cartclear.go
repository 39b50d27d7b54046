// Package worker runs the out-of-band cleanup loops of the orchestrator.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CartClearer clears a customer's cart.
type CartClearer interface {
	ClearCart(ctx context.Context, customerID string) error
}

// CartClearWorker retries cart clears that failed after an order was already
// confirmed. Clearing is advisory cleanup, so the worker only logs when it
// finally gives up.
type CartClearWorker struct {
	clearer     CartClearer
	logger      *zap.Logger
	interval    time.Duration
	maxAttempts int

	mu      sync.Mutex
	pending map[string]int
}

func NewCartClearWorker(clearer CartClearer, interval time.Duration, maxAttempts int, logger *zap.Logger) *CartClearWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartClearWorker{
		clearer:     clearer,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		pending:     make(map[string]int),
	}
}

// EnqueueClear schedules a customer's cart for clearing. Duplicate enqueues
// collapse into one pending entry.
func (w *CartClearWorker) EnqueueClear(customerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.pending[customerID]; !exists {
		w.pending[customerID] = 0
	}
}

// Pending reports how many customers still have a clear scheduled.
func (w *CartClearWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run processes the queue until ctx is cancelled.
func (w *CartClearWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CartClearWorker) sweep(ctx context.Context) {
	w.mu.Lock()
	batch := make(map[string]int, len(w.pending))
	for id, attempts := range w.pending {
		batch[id] = attempts
	}
	w.mu.Unlock()

	for customerID, attempts := range batch {
		err := w.clearer.ClearCart(ctx, customerID)
		if err == nil {
			w.logger.Info("cart cleared on retry",
				zap.String("customer_id", customerID),
				zap.Int("attempts", attempts+1),
			)
			w.remove(customerID)
			continue
		}

		if attempts+1 >= w.maxAttempts {
			w.logger.Error("cart clear abandoned",
				zap.String("customer_id", customerID),
				zap.Int("attempts", attempts+1),
				zap.Error(err),
			)
			w.remove(customerID)
			continue
		}

		w.mu.Lock()
		w.pending[customerID] = attempts + 1
		w.mu.Unlock()
	}
}

func (w *CartClearWorker) remove(customerID string) {
	w.mu.Lock()
	delete(w.pending, customerID)
	w.mu.Unlock()
}
