// Package memory provides in-process store implementations used when no
// database is configured.
package memory

import (
	"context"
	"sync"

	"github.com/minutmaidman/shopcore/internal/domain"
)

type stockEntry struct {
	mu  sync.Mutex
	rec domain.StockRecord
}

// StockStore keeps stock records in process memory with one lock per
// product, so reservations for different products never contend.
type StockStore struct {
	mu      sync.RWMutex
	entries map[string]*stockEntry
}

func NewStockStore() *StockStore {
	return &StockStore{entries: make(map[string]*stockEntry)}
}

// Seed provisions records with zero reserved quantity, replacing any
// existing record for the same product.
func (s *StockStore) Seed(quantities map[string]uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, qty := range quantities {
		s.entries[id] = &stockEntry{
			rec: domain.StockRecord{ProductID: id, Quantity: qty},
		}
	}
}

func (s *StockStore) Get(_ context.Context, productID string) (domain.StockRecord, error) {
	s.mu.RLock()
	e, ok := s.entries[productID]
	s.mu.RUnlock()
	if !ok {
		return domain.StockRecord{}, domain.ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec, nil
}

// Update serializes the read-modify-write for one product behind its entry
// lock. The record is committed only when fn returns nil.
func (s *StockStore) Update(_ context.Context, productID string, fn func(*domain.StockRecord) error) error {
	s.mu.RLock()
	e, ok := s.entries[productID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.rec
	if err := fn(&rec); err != nil {
		return err
	}
	e.rec = rec
	return nil
}

func (s *StockStore) Put(_ context.Context, rec domain.StockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[rec.ProductID]; ok {
		e.mu.Lock()
		e.rec = rec
		e.mu.Unlock()
		return nil
	}
	s.entries[rec.ProductID] = &stockEntry{rec: rec}
	return nil
}
