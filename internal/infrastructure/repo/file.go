package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"farmcart-backend/internal/domain"
)

// FileRepo writes one JSON document per order and per wallet under Dir.
// Writes go to a temp file first and are renamed into place.
type FileRepo struct {
	Dir string
}

func NewFileRepo(dir string) (*FileRepo, error) {
	for _, sub := range []string{"orders", "wallets"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return &FileRepo{Dir: dir}, nil
}

func (r *FileRepo) path(kind, id string) string {
	return filepath.Join(r.Dir, kind, url.PathEscape(id)+".json")
}

func (r *FileRepo) write(kind, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Join(r.Dir, kind)
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, r.path(kind, id)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (r *FileRepo) PutOrder(_ context.Context, o *domain.Order) error {
	return r.write("orders", o.ID, o)
}

func (r *FileRepo) LoadOrders(context.Context) ([]domain.Order, error) {
	entries, err := os.ReadDir(filepath.Join(r.Dir, "orders"))
	if err != nil {
		return nil, err
	}
	var out []domain.Order
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.Dir, "orders", e.Name()))
		if err != nil {
			return nil, err
		}
		var o domain.Order
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *FileRepo) LoadOrder(_ context.Context, id string) (*domain.Order, bool, error) {
	data, err := os.ReadFile(r.path("orders", id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var o domain.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, false, fmt.Errorf("decode order %s: %w", id, err)
	}
	return &o, true, nil
}

func (r *FileRepo) PutWallet(_ context.Context, s *domain.WalletSnapshot) error {
	return r.write("wallets", s.Wallet.AccountID, s)
}

func (r *FileRepo) LoadWallet(_ context.Context, accountID string) (*domain.WalletSnapshot, bool, error) {
	data, err := os.ReadFile(r.path("wallets", accountID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s domain.WalletSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("decode wallet %s: %w", accountID, err)
	}
	return &s, true, nil
}
