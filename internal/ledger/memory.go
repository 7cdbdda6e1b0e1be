package ledger

import (
	"context"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu  sync.RWMutex
	txs []Transaction
	ids map[string]struct{}
}

// NewMemoryRepository builds a process-local ledger repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{ids: make(map[string]struct{})}
}

func (r *memoryRepository) Insert(_ context.Context, tx Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ids[tx.ID]; exists {
		return ErrDuplicateTransaction
	}
	r.ids[tx.ID] = struct{}{}
	r.txs = append([]Transaction{tx.clone()}, r.txs...)
	return nil
}

func (r *memoryRepository) List(_ context.Context) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Transaction, 0, len(r.txs))
	for _, tx := range r.txs {
		out = append(out, tx.clone())
	}
	return out, nil
}

func (r *memoryRepository) ByCustomer(_ context.Context, customer string) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Transaction{}
	for _, tx := range r.txs {
		if strings.EqualFold(tx.Customer, customer) {
			out = append(out, tx.clone())
		}
	}
	return out, nil
}

func (r *memoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = nil
	r.ids = make(map[string]struct{})
	return nil
}
