package usecase

import (
	"context"
	"strings"
	"time"

	"farmcart-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderRepo interface {
	LoadOrders(ctx context.Context) ([]domain.Order, error)
	// LoadOrder returns false when no order with id was saved.
	LoadOrder(ctx context.Context, id string) (*domain.Order, bool, error)
	PutOrder(ctx context.Context, o *domain.Order) error
}

type WalletRepo interface {
	// LoadWallet returns false when the account has never been saved.
	LoadWallet(ctx context.Context, accountID string) (*domain.WalletSnapshot, bool, error)
	PutWallet(ctx context.Context, s *domain.WalletSnapshot) error
}

// Locker serialises mutations per key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Publisher fans change notifications out to other processes. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// PaymentAuthorizer stands in for an external payment gateway.
type PaymentAuthorizer interface {
	// Authorize returns the gateway reference and whether funds were captured.
	Authorize(ctx context.Context, method string, amount decimal.Decimal, orderID string) (ref string, captured bool, err error)
}

const (
	TopicOrders  = "farmcart.orders"
	TopicWallets = "farmcart.wallets"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) {}

func newID() string {
	return uuid.NewString()
}

// newTrackingCode returns FC- followed by ten upper-case hex characters.
func newTrackingCode() string {
	id := uuid.New()
	return "FC-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
}

func utcNow() time.Time {
	return time.Now().UTC()
}
