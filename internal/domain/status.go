package domain

import (
	"fmt"
	"strings"
)

// forward is the delivery chain; each status may only move to the next one.
var forward = []OrderStatus{
	OrderConfirmed,
	OrderPreparing,
	OrderPrepared,
	OrderPickedUp,
	OrderInTransit,
	OrderNearby,
	OrderDelivered,
}

// AllOrderStatuses lists every status, forward chain first.
func AllOrderStatuses() []OrderStatus {
	return append(append([]OrderStatus(nil), forward...), OrderCancelled)
}

var statusMessages = map[OrderStatus]LocalizedText{
	OrderConfirmed: {EN: "Order confirmed, payment received", NE: "अर्डर पुष्टि भयो, भुक्तानी प्राप्त भयो"},
	OrderPreparing: {EN: "The farmer is preparing your order", NE: "किसानले तपाईंको अर्डर तयार गर्दै हुनुहुन्छ"},
	OrderPrepared:  {EN: "Your order is packed and ready for pickup", NE: "तपाईंको अर्डर प्याक भई पिकअपका लागि तयार छ"},
	OrderPickedUp:  {EN: "The driver has picked up your order", NE: "चालकले तपाईंको अर्डर उठाउनुभयो"},
	OrderInTransit: {EN: "Your order is on the way", NE: "तपाईंको अर्डर बाटोमा छ"},
	OrderNearby:    {EN: "The driver is nearby", NE: "चालक नजिकै हुनुहुन्छ"},
	OrderDelivered: {EN: "Order delivered", NE: "अर्डर डेलिभर भयो"},
	OrderCancelled: {EN: "Order cancelled", NE: "अर्डर रद्द गरियो"},
}

// StatusMessage returns the fixed bilingual message for s.
func StatusMessage(s OrderStatus) LocalizedText {
	return statusMessages[s]
}

// ConfirmedMessage is the opening timeline message. Orders whose payment is still
// outstanding (cash on delivery, uncaptured gateway payments) say so.
func ConfirmedMessage(ps PaymentStatus) LocalizedText {
	if ps == PaymentPaid {
		return statusMessages[OrderConfirmed]
	}
	return LocalizedText{EN: "Order confirmed, payment pending", NE: "अर्डर पुष्टि भयो, भुक्तानी बाँकी छ"}
}

func DriverAssignedMessage(d Driver) LocalizedText {
	return LocalizedText{
		EN: fmt.Sprintf("Driver %s has been assigned to your order", d.Name),
		NE: fmt.Sprintf("चालक %s तपाईंको अर्डरका लागि तोकिनुभयो", d.Name),
	}
}

func (s OrderStatus) Valid() bool {
	_, ok := statusMessages[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Next returns the status that follows s on the delivery chain.
func (s OrderStatus) Next() (OrderStatus, bool) {
	for i, st := range forward {
		if st == s && i+1 < len(forward) {
			return forward[i+1], true
		}
	}
	return "", false
}

// CanTransition reports whether an order in status s may move to to.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s.Terminal() || !s.Valid() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	next, ok := s.Next()
	return ok && next == to
}

// ParseOrderStatus accepts the wire form case-insensitively.
func ParseOrderStatus(v string) (OrderStatus, error) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid order status %q", v)
	}
	return s, nil
}
