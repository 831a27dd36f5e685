package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"farmcart-backend/internal/domain"
	"farmcart-backend/internal/lock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultDeliveryETA = 24 * time.Hour

type OrderOptions struct {
	Locker    Locker
	Publisher Publisher
	Logger    *zap.Logger
	ETA       time.Duration
	Currency  string
	Now       func() time.Time

	// Shared means other processes write the same store, so reads go to the repo
	// rather than the local cache.
	Shared bool
}

// OrderService caches orders in memory and writes each mutation through to the repo.
// Mutations always re-read the order from the repo once the lock is held.
type OrderService struct {
	repo     OrderRepo
	locks    Locker
	pub      Publisher
	log      *zap.Logger
	eta      time.Duration
	currency string
	now      func() time.Time
	shared   bool

	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderService(ctx context.Context, repo OrderRepo, opts OrderOptions) (*OrderService, error) {
	s := &OrderService{
		repo:     repo,
		locks:    opts.Locker,
		pub:      opts.Publisher,
		log:      opts.Logger,
		eta:      opts.ETA,
		currency: opts.Currency,
		now:      opts.Now,
		shared:   opts.Shared,
		orders:   map[string]*domain.Order{},
	}
	if s.locks == nil {
		s.locks = lock.NewKeyedMutex()
	}
	if s.pub == nil {
		s.pub = nopPublisher{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.eta <= 0 {
		s.eta = DefaultDeliveryETA
	}
	if s.currency == "" {
		s.currency = domain.DefaultCurrency
	}
	if s.now == nil {
		s.now = utcNow
	}
	all, err := repo.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	for i := range all {
		o := all[i]
		s.orders[o.ID] = &o
	}
	s.log.Info("orders loaded", zap.Int("count", len(all)))
	return s, nil
}

type CreateOrderRequest struct {
	// ID is preassigned by checkout; empty means generate one.
	ID               string
	Customer         domain.Customer
	Items            []domain.OrderItem
	Discount         decimal.Decimal
	DeliveryFee      decimal.Decimal
	Total            *decimal.Decimal
	Currency         string
	PaymentMethod    string
	PaymentStatus    domain.PaymentStatus
	PaymentReference string
	DeliveryAddress  string
	PromoCode        string
	Instructions     string
}

// Price validates the cart and returns subtotal and total.
func (r CreateOrderRequest) Price() (subtotal, total decimal.Decimal, err error) {
	if len(r.Items) == 0 {
		return subtotal, total, InvalidOrderError("no items")
	}
	for _, it := range r.Items {
		if it.ProductID == "" {
			return subtotal, total, InvalidOrderError("item without product id")
		}
		if it.Quantity <= 0 {
			return subtotal, total, InvalidOrderError(fmt.Sprintf("quantity of %s must be positive", it.ProductID))
		}
		if it.MaxQuantity > 0 && it.Quantity > it.MaxQuantity {
			return subtotal, total, InvalidOrderError(fmt.Sprintf("quantity of %s exceeds %d", it.ProductID, it.MaxQuantity))
		}
		if it.Price.IsNegative() {
			return subtotal, total, InvalidOrderError(fmt.Sprintf("price of %s is negative", it.ProductID))
		}
		subtotal = subtotal.Add(it.LineTotal())
	}
	if r.Discount.IsNegative() || r.DeliveryFee.IsNegative() {
		return subtotal, total, InvalidOrderError("discount and delivery fee must not be negative")
	}
	total = domain.Round(subtotal.Sub(r.Discount).Add(r.DeliveryFee))
	if total.IsNegative() {
		return subtotal, total, InvalidOrderError("total is negative")
	}
	if r.Total != nil && !r.Total.Equal(total) {
		return subtotal, total, InvalidOrderError(fmt.Sprintf("total %s does not match %s", r.Total.StringFixed(2), total.StringFixed(2)))
	}
	return subtotal, total, nil
}

func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if strings.TrimSpace(req.Customer.ID) == "" {
		return nil, InvalidOrderError("customer id required")
	}
	subtotal, total, err := req.Price()
	if err != nil {
		return nil, err
	}
	id := req.ID
	if id == "" {
		id = newID()
	}
	unlock, err := s.locks.Lock(ctx, "order:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	_, exists, err := s.repo.LoadOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	if exists {
		return nil, InvalidOrderError("order " + id + " already exists")
	}

	now := s.now()
	o := &domain.Order{
		ID:                id,
		TrackingCode:      newTrackingCode(),
		CustomerID:        req.Customer.ID,
		Items:             append([]domain.OrderItem(nil), req.Items...),
		Subtotal:          domain.Round(subtotal),
		Discount:          domain.Round(req.Discount),
		DeliveryFee:       domain.Round(req.DeliveryFee),
		Total:             total,
		Currency:          req.Currency,
		Status:            domain.OrderConfirmed,
		PaymentStatus:     req.PaymentStatus,
		PaymentMethod:     req.PaymentMethod,
		PaymentReference:  req.PaymentReference,
		DeliveryAddress:   req.DeliveryAddress,
		Customer:          req.Customer,
		PromoCode:         req.PromoCode,
		Instructions:      req.Instructions,
		CreatedAt:         now,
		UpdatedAt:         now,
		EstimatedDelivery: now.Add(s.eta),
	}
	if o.Currency == "" {
		o.Currency = s.currency
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = domain.PaymentPending
	}
	if o.DeliveryAddress == "" {
		o.DeliveryAddress = req.Customer.Address
	}
	o.Append(domain.TimelineEvent{
		Status:    domain.OrderConfirmed,
		Timestamp: now,
		Message:   domain.ConfirmedMessage(o.PaymentStatus),
	})
	if err := s.repo.PutOrder(ctx, o); err != nil {
		s.log.Error("create order", zap.String("order", id), zap.Error(err))
		return nil, fmt.Errorf("save order %s: %w", id, err)
	}
	s.mu.Lock()
	s.orders[id] = o
	s.mu.Unlock()
	s.log.Info("order created",
		zap.String("order", id),
		zap.String("customer", o.CustomerID),
		zap.String("total", o.Total.StringFixed(2)),
		zap.String("payment", string(o.PaymentStatus)))
	s.pub.Publish(ctx, TopicOrders, orderEvent("created", o))
	return o.Clone(), nil
}

// TransitionExtra carries optional fields merged into the order on a status change.
type TransitionExtra struct {
	Note              string
	Location          *domain.GeoPoint
	Photos            []string
	DeliveryDate      *time.Time
	EstimatedDelivery *time.Time
}

// Transition moves the order along the delivery chain or to cancelled. Cancelling here
// never touches payment; use CheckoutService.CancelOrder to refund wallet payments.
func (s *OrderService) Transition(ctx context.Context, id string, to domain.OrderStatus, extra *TransitionExtra) (*domain.Order, error) {
	if !to.Valid() {
		return nil, InvalidOrderError(fmt.Sprintf("unknown status %q", to))
	}
	return s.mutate(ctx, id, "status", func(o *domain.Order, now time.Time) error {
		if !o.Status.CanTransition(to) {
			return IllegalTransitionError{From: o.Status, To: to}
		}
		ev := domain.TimelineEvent{
			Status:    to,
			Timestamp: now,
			Message:   domain.StatusMessage(to),
		}
		if extra != nil {
			ev.Note = extra.Note
			ev.Location = extra.Location
			ev.Photos = append([]string(nil), extra.Photos...)
			if extra.EstimatedDelivery != nil {
				o.EstimatedDelivery = extra.EstimatedDelivery.UTC()
			}
		}
		o.Status = to
		o.Append(ev)
		if to == domain.OrderDelivered {
			at := now
			if extra != nil && extra.DeliveryDate != nil {
				at = extra.DeliveryDate.UTC()
			}
			o.DeliveredAt = &at
		}
		return nil
	})
}

func (s *OrderService) Cancel(ctx context.Context, id, reason string) (*domain.Order, error) {
	return s.mutate(ctx, id, "cancel", func(o *domain.Order, now time.Time) error {
		if !o.Status.CanTransition(domain.OrderCancelled) {
			return IllegalTransitionError{From: o.Status, To: domain.OrderCancelled}
		}
		o.Status = domain.OrderCancelled
		o.CancelReason = reason
		o.Append(domain.TimelineEvent{
			Status:    domain.OrderCancelled,
			Timestamp: now,
			Message:   domain.StatusMessage(domain.OrderCancelled),
			Note:      reason,
		})
		return nil
	})
}

func (s *OrderService) AssignDriver(ctx context.Context, id string, d domain.Driver) (*domain.Order, error) {
	if strings.TrimSpace(d.ID) == "" {
		return nil, InvalidOrderError("driver id required")
	}
	return s.mutate(ctx, id, "driver", func(o *domain.Order, now time.Time) error {
		o.Driver = &d
		o.Append(domain.TimelineEvent{
			Status:    o.Status,
			Label:     "driver_assigned",
			Timestamp: now,
			Message:   domain.DriverAssignedMessage(d),
		})
		return nil
	})
}

// TimelineInput is a free-form entry such as a note or a geo ping.
type TimelineInput struct {
	Label     string
	Message   domain.LocalizedText
	Note      string
	Location  *domain.GeoPoint
	Photos    []string
	Timestamp time.Time
}

func (s *OrderService) AppendTimelineEvent(ctx context.Context, id string, in TimelineInput) (*domain.Order, error) {
	return s.mutate(ctx, id, "timeline", func(o *domain.Order, now time.Time) error {
		ev := domain.TimelineEvent{
			Status:    o.Status,
			Label:     in.Label,
			Timestamp: in.Timestamp.UTC(),
			Message:   in.Message,
			Note:      in.Note,
			Location:  in.Location,
			Photos:    append([]string(nil), in.Photos...),
		}
		if in.Timestamp.IsZero() {
			ev.Timestamp = now
		}
		if ev.Message.IsZero() {
			ev.Message = domain.StatusMessage(o.Status)
		}
		o.Append(ev)
		return nil
	})
}

func (s *OrderService) SetPaymentStatus(ctx context.Context, id string, st domain.PaymentStatus, ref string) (*domain.Order, error) {
	switch st {
	case domain.PaymentPending, domain.PaymentPaid, domain.PaymentRefunded:
	default:
		return nil, InvalidOrderError(fmt.Sprintf("unknown payment status %q", st))
	}
	return s.mutate(ctx, id, "payment", func(o *domain.Order, now time.Time) error {
		o.PaymentStatus = st
		if ref != "" {
			o.PaymentReference = ref
		}
		o.UpdatedAt = now
		return nil
	})
}

// mutate applies fn to a copy of the order and installs the copy only after it is saved.
func (s *OrderService) mutate(ctx context.Context, id, op string, fn func(o *domain.Order, now time.Time) error) (*domain.Order, error) {
	unlock, err := s.locks.Lock(ctx, "order:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	cur, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	if err := fn(next, s.now()); err != nil {
		s.log.Warn("order "+op+" rejected", zap.String("order", id), zap.Error(err))
		return nil, err
	}
	if err := s.repo.PutOrder(ctx, next); err != nil {
		s.log.Error("order "+op+" not saved", zap.String("order", id), zap.Error(err))
		return nil, fmt.Errorf("save order %s: %w", id, err)
	}
	s.mu.Lock()
	s.orders[id] = next
	s.mu.Unlock()
	s.log.Info("order "+op,
		zap.String("order", id),
		zap.String("status", string(next.Status)),
		zap.Int("timeline", len(next.Timeline)))
	s.pub.Publish(ctx, TopicOrders, orderEvent(op, next))
	return next.Clone(), nil
}

// fetch reads the order from the repo, bypassing the cache.
func (s *OrderService) fetch(ctx context.Context, id string) (*domain.Order, error) {
	o, ok, err := s.repo.LoadOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	if !ok {
		return nil, OrderNotFoundError(id)
	}
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	if s.shared {
		return s.fetch(ctx, id)
	}
	s.mu.RLock()
	o, ok := s.orders[id]
	s.mu.RUnlock()
	if ok {
		return o.Clone(), nil
	}
	o, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if _, ok := s.orders[id]; !ok {
		s.orders[id] = o
	}
	s.mu.Unlock()
	return o.Clone(), nil
}

// refresh replaces the cache with the repo contents when other processes share the store.
// A failed reload keeps serving the cache.
func (s *OrderService) refresh(ctx context.Context) {
	if !s.shared {
		return
	}
	all, err := s.repo.LoadOrders(ctx)
	if err != nil {
		s.log.Warn("reload orders", zap.Error(err))
		return
	}
	m := make(map[string]*domain.Order, len(all))
	for i := range all {
		o := all[i]
		m[o.ID] = &o
	}
	s.mu.Lock()
	s.orders = m
	s.mu.Unlock()
}

func (s *OrderService) ListForCustomer(ctx context.Context, customerID string) []domain.Order {
	return s.filter(ctx, func(o *domain.Order) bool { return o.CustomerID == customerID })
}

func (s *OrderService) ListByStatus(ctx context.Context, st domain.OrderStatus) []domain.Order {
	return s.filter(ctx, func(o *domain.Order) bool { return o.Status == st })
}

// ListRecent returns up to n orders, newest first. n <= 0 returns all.
func (s *OrderService) ListRecent(ctx context.Context, n int) []domain.Order {
	out := s.filter(ctx, func(*domain.Order) bool { return true })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// filter returns matching orders sorted by creation time, newest first.
func (s *OrderService) filter(ctx context.Context, keep func(o *domain.Order) bool) []domain.Order {
	s.refresh(ctx)
	s.mu.RLock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *o.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type OrderStats struct {
	Total      int                        `json:"total"`
	Active     int                        `json:"active"`
	Delivered  int                        `json:"delivered"`
	Cancelled  int                        `json:"cancelled"`
	ByStatus   map[domain.OrderStatus]int `json:"byStatus"`
	TotalValue decimal.Decimal            `json:"totalValue"`
}

// Stats summarises the orders of one customer, or of everyone when customerID is empty.
func (s *OrderService) Stats(ctx context.Context, customerID string) OrderStats {
	st := OrderStats{ByStatus: map[domain.OrderStatus]int{}}
	for _, status := range domain.AllOrderStatuses() {
		st.ByStatus[status] = 0
	}
	s.refresh(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if customerID != "" && o.CustomerID != customerID {
			continue
		}
		st.Total++
		st.ByStatus[o.Status]++
		switch o.Status {
		case domain.OrderDelivered:
			st.Delivered++
		case domain.OrderCancelled:
			st.Cancelled++
		default:
			st.Active++
		}
		if o.Status != domain.OrderCancelled {
			st.TotalValue = st.TotalValue.Add(o.Total)
		}
	}
	return st
}

func orderEvent(kind string, o *domain.Order) map[string]any {
	return map[string]any{
		"event":         kind,
		"orderId":       o.ID,
		"customerId":    o.CustomerID,
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"updatedAt":     o.UpdatedAt,
	}
}
