package usecase

import (
	"fmt"

	"farmcart-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type InvalidOrderError string

func (e InvalidOrderError) Error() string { return "invalid order: " + string(e) }

type OrderNotFoundError string

func (e OrderNotFoundError) Error() string { return "order " + string(e) + " not found" }

type TransactionNotFoundError string

func (e TransactionNotFoundError) Error() string { return "transaction " + string(e) + " not found" }

type InvalidAmountError string

func (e InvalidAmountError) Error() string { return "invalid amount: " + string(e) }

type IllegalTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s", e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

type InsufficientPointsError struct {
	Available int64
	Requested int64
}

func (e InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient loyalty points: have %d, need %d", e.Available, e.Requested)
}

// PaymentFailedError wraps the reason a checkout could not capture funds.
type PaymentFailedError struct {
	Method string
	Err    error
}

func (e PaymentFailedError) Error() string {
	return fmt.Sprintf("payment via %s failed: %v", e.Method, e.Err)
}

func (e PaymentFailedError) Unwrap() error { return e.Err }

// TransactionStateError reports an operation on a transaction in the wrong state.
type TransactionStateError string

func (e TransactionStateError) Error() string { return string(e) }

type InvalidAccountError string

func (e InvalidAccountError) Error() string { return "invalid account: " + string(e) }
