package repo

import (
	"context"
	"sort"
	"sync"

	"farmcart-backend/internal/domain"
)

type MemoryOrderRepo struct {
	mu sync.RWMutex
	m  map[string]*domain.Order
}

func NewMemoryOrderRepo() *MemoryOrderRepo {
	return &MemoryOrderRepo{m: make(map[string]*domain.Order)}
}

func (r *MemoryOrderRepo) PutOrder(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[o.ID] = o.Clone()
	return nil
}

func (r *MemoryOrderRepo) LoadOrder(_ context.Context, id string) (*domain.Order, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.m[id]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

func (r *MemoryOrderRepo) LoadOrders(context.Context) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Order, 0, len(r.m))
	for _, o := range r.m {
		all = append(all, *o.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

type MemoryWalletRepo struct {
	mu sync.RWMutex
	m  map[string]*domain.WalletSnapshot
}

func NewMemoryWalletRepo() *MemoryWalletRepo {
	return &MemoryWalletRepo{m: make(map[string]*domain.WalletSnapshot)}
}

func (r *MemoryWalletRepo) PutWallet(_ context.Context, s *domain.WalletSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[s.Wallet.AccountID] = s.Clone()
	return nil
}

func (r *MemoryWalletRepo) LoadWallet(_ context.Context, accountID string) (*domain.WalletSnapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[accountID]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}
