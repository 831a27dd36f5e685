package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxPayment  TransactionType = "payment"
	TxRefund   TransactionType = "refund"
	TxPayout   TransactionType = "payout"
	TxTopup    TransactionType = "topup"
	TxTransfer TransactionType = "transfer"
	TxCashback TransactionType = "cashback"
	TxReward   TransactionType = "reward"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

type Transaction struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"accountId"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Status      TransactionStatus `json:"status"`
	From        string            `json:"from,omitempty"`
	To          string            `json:"to,omitempty"`
	Description LocalizedText     `json:"description"`
	OrderID     string            `json:"orderId,omitempty"`
	Method      string            `json:"method,omitempty"`
	Fee         decimal.Decimal   `json:"fee"`
	Category    string            `json:"category,omitempty"`
	CausedBy    string            `json:"causedBy,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// CountsTowardBalance reports whether the amount of t is reflected in the wallet balance.
// Pending payouts are debited when requested, so they count until they fail.
func (t Transaction) CountsTowardBalance() bool {
	switch t.Status {
	case TxCompleted:
		return true
	case TxPending:
		return t.Type == TxPayout
	}
	return false
}
