package repo

import (
	"context"
	"testing"
	"time"

	"farmcart-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store interface {
	LoadOrders(ctx context.Context) ([]domain.Order, error)
	LoadOrder(ctx context.Context, id string) (*domain.Order, bool, error)
	PutOrder(ctx context.Context, o *domain.Order) error
	LoadWallet(ctx context.Context, accountID string) (*domain.WalletSnapshot, bool, error)
	PutWallet(ctx context.Context, s *domain.WalletSnapshot) error
}

var t0 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleOrder(id string, created time.Time) *domain.Order {
	return &domain.Order{
		ID:           id,
		TrackingCode: "FC-0A1B2C3D4E",
		CustomerID:   "cust-1",
		Items: []domain.OrderItem{{
			ProductID: "tomato",
			Name:      domain.LocalizedText{EN: "Tomato", NE: "गोलभेडा"},
			FarmerID:  "farmer-7",
			Price:     decimal.RequireFromString("85.50"),
			Quantity:  2,
			Unit:      "kg",
		}},
		Subtotal:      decimal.RequireFromString("171"),
		DeliveryFee:   decimal.RequireFromString("50"),
		Total:         decimal.RequireFromString("221"),
		Currency:      "NPR",
		Status:        domain.OrderConfirmed,
		PaymentStatus: domain.PaymentPaid,
		PaymentMethod: "wallet",
		Customer:      domain.Customer{ID: "cust-1", Name: "Sita", Phone: "9800000000", Address: "Lalitpur"},
		Timeline: []domain.TimelineEvent{{
			Status:    domain.OrderConfirmed,
			Timestamp: created,
			Message:   domain.StatusMessage(domain.OrderConfirmed),
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func sampleWallet(account string) *domain.WalletSnapshot {
	w := domain.NewWallet(account, "NPR", t0)
	w.Balance = decimal.RequireFromString("709")
	w.LoyaltyPoints = 10
	return &domain.WalletSnapshot{
		Wallet: w,
		Transactions: []domain.Transaction{
			{ID: "tx-1", AccountID: account, Type: domain.TxTopup, Amount: decimal.NewFromInt(1000), Status: domain.TxCompleted, Method: "khalti", CreatedAt: t0},
			{ID: "tx-2", AccountID: account, Type: domain.TxPayment, Amount: decimal.NewFromInt(-300), Status: domain.TxCompleted, OrderID: "ORD_1", CreatedAt: t0},
			{ID: "tx-3", AccountID: account, Type: domain.TxCashback, Amount: decimal.NewFromInt(9), Status: domain.TxCompleted, CausedBy: "tx-2", CreatedAt: t0},
		},
	}
}

func exerciseStore(t *testing.T, s store) {
	ctx := context.Background()

	orders, err := s.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	require.NoError(t, s.PutOrder(ctx, sampleOrder("o-2", t0.Add(time.Hour))))
	require.NoError(t, s.PutOrder(ctx, sampleOrder("o-1", t0)))
	o := sampleOrder("o-1", t0)
	o.Status = domain.OrderPreparing
	o.Timeline = append(o.Timeline, domain.TimelineEvent{Status: domain.OrderPreparing, Timestamp: t0.Add(time.Minute), Message: domain.StatusMessage(domain.OrderPreparing)})
	require.NoError(t, s.PutOrder(ctx, o))

	orders, err = s.LoadOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o-1", orders[0].ID)
	assert.Equal(t, domain.OrderPreparing, orders[0].Status)
	assert.Len(t, orders[0].Timeline, 2)
	assert.True(t, orders[0].Total.Equal(decimal.NewFromInt(221)))
	assert.True(t, orders[0].Items[0].Price.Equal(decimal.RequireFromString("85.5")))
	assert.Equal(t, "गोलभेडा", orders[0].Items[0].Name.NE)
	assert.True(t, orders[0].CreatedAt.Equal(t0))

	one, ok, err := s.LoadOrder(ctx, "o-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.OrderPreparing, one.Status)
	assert.Len(t, one.Timeline, 2)
	_, ok, err = s.LoadOrder(ctx, "o-404")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.LoadWallet(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := sampleWallet("acct-1")
	require.NoError(t, s.PutWallet(ctx, snap))
	snap.Transactions = append(snap.Transactions, domain.Transaction{ID: "tx-4", AccountID: "acct-1", Type: domain.TxPayout, Amount: decimal.NewFromInt(-100), Status: domain.TxPending})
	snap.Wallet.Balance = decimal.NewFromInt(609)
	require.NoError(t, s.PutWallet(ctx, snap))
	snap.Transactions[3].Status = domain.TxCompleted
	require.NoError(t, s.PutWallet(ctx, snap))

	got, ok, err := s.LoadWallet(ctx, "acct-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Wallet.Balance.Equal(decimal.NewFromInt(609)))
	assert.Equal(t, int64(10), got.Wallet.LoyaltyPoints)
	require.Len(t, got.Transactions, 4)
	assert.Equal(t, []string{"tx-1", "tx-2", "tx-3", "tx-4"}, []string{got.Transactions[0].ID, got.Transactions[1].ID, got.Transactions[2].ID, got.Transactions[3].ID})
	assert.Equal(t, domain.TxCompleted, got.Transactions[3].Status)
	assert.True(t, got.LedgerBalance().Equal(decimal.NewFromInt(609)))
}

func TestMemoryRepo(t *testing.T) {
	exerciseStore(t, struct {
		*MemoryOrderRepo
		*MemoryWalletRepo
	}{NewMemoryOrderRepo(), NewMemoryWalletRepo()})
}

func TestMemoryRepoCopiesValues(t *testing.T) {
	r := NewMemoryOrderRepo()
	o := sampleOrder("o-1", t0)
	require.NoError(t, r.PutOrder(context.Background(), o))
	o.Status = domain.OrderCancelled
	o.Timeline[0].Note = "mutated"
	all, err := r.LoadOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, all[0].Status)
	assert.Empty(t, all[0].Timeline[0].Note)
}

func TestFileRepo(t *testing.T) {
	r, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, r)
}

func TestFileRepoEscapesIDs(t *testing.T) {
	r, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)
	snap := sampleWallet("../escape")
	require.NoError(t, r.PutWallet(context.Background(), snap))
	got, ok, err := r.LoadWallet(context.Background(), "../escape")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "../escape", got.Wallet.AccountID)
}

func TestSQLiteRepo(t *testing.T) {
	r, err := NewSQLiteRepo(context.Background(), ":memory:")
	require.NoError(t, err)
	defer r.Close()
	exerciseStore(t, r)
}
