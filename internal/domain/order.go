package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderPrepared  OrderStatus = "prepared"
	OrderPickedUp  OrderStatus = "picked_up"
	OrderInTransit OrderStatus = "in_transit"
	OrderNearby    OrderStatus = "nearby"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type OrderItem struct {
	ProductID     string          `json:"productId"`
	Name          LocalizedText   `json:"name"`
	FarmerID      string          `json:"farmerId"`
	FarmerName    LocalizedText   `json:"farmerName"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Quantity      int             `json:"quantity"`
	Unit          string          `json:"unit"`
	MaxQuantity   int             `json:"maxQuantity,omitempty"`
	Verified      bool            `json:"verified"`
	Fresh         bool            `json:"fresh"`
	Organic       bool            `json:"organic"`
	Rating        float64         `json:"rating,omitempty"`
	DistanceKm    float64         `json:"distanceKm,omitempty"`
}

// LineTotal is price times quantity at ledger precision.
func (it OrderItem) LineTotal() decimal.Decimal {
	return Round(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
}

type TimelineEvent struct {
	Status    OrderStatus   `json:"status"`
	Label     string        `json:"label,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   LocalizedText `json:"message"`
	Location  *GeoPoint     `json:"location,omitempty"`
	Photos    []string      `json:"photos,omitempty"`
	Note      string        `json:"note,omitempty"`
}

type Order struct {
	ID                string          `json:"id"`
	TrackingCode      string          `json:"trackingCode"`
	CustomerID        string          `json:"customerId"`
	Items             []OrderItem     `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	DeliveryFee       decimal.Decimal `json:"deliveryFee"`
	Total             decimal.Decimal `json:"total"`
	Currency          string          `json:"currency"`
	Status            OrderStatus     `json:"status"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	PaymentMethod     string          `json:"paymentMethod"`
	PaymentReference  string          `json:"paymentReference,omitempty"`
	DeliveryAddress   string          `json:"deliveryAddress"`
	Customer          Customer        `json:"customer"`
	Driver            *Driver         `json:"driver,omitempty"`
	Timeline          []TimelineEvent `json:"timeline"`
	PromoCode         string          `json:"promoCode,omitempty"`
	Instructions      string          `json:"instructions,omitempty"`
	CancelReason      string          `json:"cancelReason,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	DeliveredAt       *time.Time      `json:"deliveredAt,omitempty"`
}

// Clone returns a deep copy so callers and stores never share slices.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	cp.Timeline = make([]TimelineEvent, len(o.Timeline))
	for i, ev := range o.Timeline {
		if ev.Location != nil {
			loc := *ev.Location
			ev.Location = &loc
		}
		ev.Photos = append([]string(nil), ev.Photos...)
		cp.Timeline[i] = ev
	}
	if o.Driver != nil {
		d := *o.Driver
		cp.Driver = &d
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}

// LastEvent returns the newest timeline entry, or false for an order that was never created.
func (o *Order) LastEvent() (TimelineEvent, bool) {
	if len(o.Timeline) == 0 {
		return TimelineEvent{}, false
	}
	return o.Timeline[len(o.Timeline)-1], true
}

// Append adds ev to the timeline keeping timestamps non-decreasing.
func (o *Order) Append(ev TimelineEvent) {
	if last, ok := o.LastEvent(); ok && ev.Timestamp.Before(last.Timestamp) {
		ev.Timestamp = last.Timestamp
	}
	o.Timeline = append(o.Timeline, ev)
	o.UpdatedAt = ev.Timestamp
}
