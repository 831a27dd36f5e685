package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"farmcart-backend/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const PaymentMethodWallet = "wallet"

// CheckoutService sequences payment capture and order creation. The wallet account of a
// customer is keyed by the customer id.
type CheckoutService struct {
	Orders  *OrderService
	Wallets *WalletService
	Gateway PaymentAuthorizer
	Log     *zap.Logger
}

type CheckoutRequest struct {
	Customer        domain.Customer    `json:"customer"`
	Items           []domain.OrderItem `json:"items"`
	Discount        decimal.Decimal    `json:"discount"`
	DeliveryFee     decimal.Decimal    `json:"deliveryFee"`
	Total           *decimal.Decimal   `json:"total,omitempty"`
	PaymentMethod   string             `json:"paymentMethod"`
	DeliveryAddress string             `json:"deliveryAddress"`
	PromoCode       string             `json:"promoCode,omitempty"`
	Instructions    string             `json:"instructions,omitempty"`
	Category        string             `json:"category,omitempty"`
}

type CheckoutResult struct {
	Order   *domain.Order `json:"order"`
	Payment *DeductResult `json:"payment,omitempty"`
}

func (s *CheckoutService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		return nil, InvalidOrderError("payment method required")
	}
	create := CreateOrderRequest{
		ID:              newID(),
		Customer:        req.Customer,
		Items:           req.Items,
		Discount:        req.Discount,
		DeliveryFee:     req.DeliveryFee,
		Total:           req.Total,
		PaymentMethod:   method,
		PaymentStatus:   domain.PaymentPending,
		DeliveryAddress: req.DeliveryAddress,
		PromoCode:       req.PromoCode,
		Instructions:    req.Instructions,
	}
	if strings.TrimSpace(req.Customer.ID) == "" {
		return nil, InvalidOrderError("customer id required")
	}
	_, total, err := create.Price()
	if err != nil {
		return nil, err
	}
	log := s.logger().With(zap.String("order", create.ID), zap.String("customer", req.Customer.ID), zap.String("method", method))

	res := &CheckoutResult{}
	captured := false
	switch {
	case method == PaymentMethodWallet && total.IsPositive():
		d, err := s.Wallets.Deduct(ctx, req.Customer.ID, DeductRequest{
			Amount:   total,
			OrderID:  create.ID,
			Category: req.Category,
		})
		if err != nil {
			log.Warn("wallet payment failed", zap.Error(err))
			return nil, PaymentFailedError{Method: method, Err: err}
		}
		res.Payment = &d
		captured = true
		create.PaymentStatus = domain.PaymentPaid
		create.PaymentReference = d.Payment.ID
	case method == PaymentMethodWallet:
		create.PaymentStatus = domain.PaymentPaid
	default:
		ref, ok, err := s.Gateway.Authorize(ctx, method, total, create.ID)
		if err != nil {
			log.Warn("external payment failed", zap.Error(err))
			return nil, PaymentFailedError{Method: method, Err: err}
		}
		create.PaymentReference = ref
		if ok {
			create.PaymentStatus = domain.PaymentPaid
		}
	}

	o, err := s.Orders.Create(ctx, create)
	if err != nil {
		if captured {
			if _, rerr := s.Wallets.Refund(ctx, req.Customer.ID, total, create.ID, domain.LocalizedText{
				EN: "Refund for failed checkout",
				NE: "असफल चेकआउटको फिर्ता",
			}); rerr != nil {
				log.Error("compensating refund failed", zap.Error(rerr), zap.String("amount", total.StringFixed(2)))
				return nil, errors.Join(err, fmt.Errorf("refund %s: %w", create.ID, rerr))
			}
			log.Info("checkout compensated", zap.String("amount", total.StringFixed(2)))
		}
		return nil, err
	}
	res.Order = o
	log.Info("checkout complete", zap.String("total", o.Total.StringFixed(2)), zap.String("payment", string(o.PaymentStatus)))
	return res, nil
}

// CancelOrder cancels the order and returns wallet-paid funds to the customer. Calling it
// again on a cancelled order that still shows as paid retries the refund, which is
// credited at most once per order.
func (s *CheckoutService) CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch {
	case o.Status != domain.OrderCancelled:
		if o, err = s.Orders.Cancel(ctx, orderID, reason); err != nil {
			return nil, err
		}
	case !owesRefund(o):
		return nil, IllegalTransitionError{From: o.Status, To: domain.OrderCancelled}
	default:
		s.logger().Info("retrying refund", zap.String("order", o.ID))
	}
	if !owesRefund(o) {
		return o, nil
	}
	tx, err := s.Wallets.RefundOrder(ctx, o.CustomerID, o.Total, o.ID)
	if err != nil {
		s.logger().Error("refund on cancel failed", zap.String("order", o.ID), zap.Error(err))
		return o, fmt.Errorf("refund order %s: %w", o.ID, err)
	}
	o, err = s.Orders.SetPaymentStatus(ctx, o.ID, domain.PaymentRefunded, "")
	if err != nil {
		return nil, err
	}
	s.logger().Info("order refunded", zap.String("order", o.ID), zap.String("tx", tx.ID))
	return o, nil
}

// owesRefund reports whether a cancelled order still holds captured wallet funds.
func owesRefund(o *domain.Order) bool {
	return o.PaymentMethod == PaymentMethodWallet && o.PaymentStatus == domain.PaymentPaid && o.Total.IsPositive()
}
