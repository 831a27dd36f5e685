package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"farmcart-backend/internal/domain"
)

var errDiskFull = errors.New("disk full")

type fakeOrderRepo struct {
	mu   sync.Mutex
	m    map[string]domain.Order
	fail bool
	puts int
}

func (r *fakeOrderRepo) LoadOrders(context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, 0, len(r.m))
	for _, o := range r.m {
		out = append(out, *o.Clone())
	}
	return out, nil
}

func (r *fakeOrderRepo) LoadOrder(_ context.Context, id string) (*domain.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.m[id]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

func (r *fakeOrderRepo) PutOrder(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errDiskFull
	}
	if r.m == nil {
		r.m = map[string]domain.Order{}
	}
	r.m[o.ID] = *o.Clone()
	r.puts++
	return nil
}

type fakeWalletRepo struct {
	mu   sync.Mutex
	m    map[string]domain.WalletSnapshot
	fail bool
	puts int
}

func (r *fakeWalletRepo) LoadWallet(_ context.Context, id string) (*domain.WalletSnapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (r *fakeWalletRepo) PutWallet(_ context.Context, s *domain.WalletSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errDiskFull
	}
	if r.m == nil {
		r.m = map[string]domain.WalletSnapshot{}
	}
	r.m[s.Wallet.AccountID] = *s.Clone()
	r.puts++
	return nil
}

func (r *fakeWalletRepo) setFail(v bool) {
	r.mu.Lock()
	r.fail = v
	r.mu.Unlock()
}

// clock is a manual time source; Now never moves unless Advance is called.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
