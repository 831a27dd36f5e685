package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierBasic    Tier = "basic"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type TierBenefits struct {
	Tier         Tier            `json:"tier"`
	CashbackRate decimal.Decimal `json:"cashbackRate"`
	CreditLimit  decimal.Decimal `json:"creditLimit"`
	Perks        []string        `json:"perks"`
}

var tiers = map[Tier]TierBenefits{
	TierBasic: {
		Tier:         TierBasic,
		CashbackRate: decimal.NewFromInt(1),
		CreditLimit:  decimal.Zero,
		Perks:        []string{"1% cashback on wallet payments"},
	},
	TierSilver: {
		Tier:         TierSilver,
		CashbackRate: decimal.NewFromInt(2),
		CreditLimit:  decimal.NewFromInt(5000),
		Perks:        []string{"2% cashback on wallet payments", "priority support"},
	},
	TierGold: {
		Tier:         TierGold,
		CashbackRate: decimal.NewFromInt(3),
		CreditLimit:  decimal.NewFromInt(15000),
		Perks:        []string{"3% cashback on wallet payments", "priority support", "free delivery weekends"},
	},
	TierPlatinum: {
		Tier:         TierPlatinum,
		CashbackRate: decimal.NewFromInt(5),
		CreditLimit:  decimal.NewFromInt(50000),
		Perks:        []string{"5% cashback on wallet payments", "dedicated support", "free delivery"},
	},
}

// Benefits returns the benefit table row for t; unknown tiers fall back to basic.
func (t Tier) Benefits() TierBenefits {
	b, ok := tiers[t]
	if !ok {
		b = tiers[TierBasic]
	}
	b.Perks = append([]string(nil), b.Perks...)
	return b
}

func (t Tier) Valid() bool {
	_, ok := tiers[t]
	return ok
}

type AutoReload struct {
	Enabled   bool            `json:"enabled"`
	Amount    decimal.Decimal `json:"amount"`
	Threshold decimal.Decimal `json:"threshold"`
	Method    string          `json:"method"`
}

type Wallet struct {
	AccountID       string          `json:"accountId"`
	Currency        string          `json:"currency"`
	OpeningBalance  decimal.Decimal `json:"openingBalance"`
	Balance         decimal.Decimal `json:"balance"`
	Frozen          decimal.Decimal `json:"frozen"`
	CreditLimit     decimal.Decimal `json:"creditLimit"`
	CreditUsed      decimal.Decimal `json:"creditUsed"`
	TotalEarned     decimal.Decimal `json:"totalEarned"`
	TotalSpent      decimal.Decimal `json:"totalSpent"`
	LoyaltyPoints   int64           `json:"loyaltyPoints"`
	CashbackEarned  decimal.Decimal `json:"cashbackEarned"`
	Tier            Tier            `json:"tier"`
	MonthlySpending decimal.Decimal `json:"monthlySpending"`
	SpendingMonth   string          `json:"spendingMonth"`
	SpendingLimit   decimal.Decimal `json:"spendingLimit"`
	PendingPayouts  decimal.Decimal `json:"pendingPayouts"`
	AutoReload      AutoReload      `json:"autoReload"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Available is the part of the balance not held by a freeze.
func (w Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.Frozen)
}

// NewWallet returns an empty basic-tier wallet.
func NewWallet(accountID, currency string, now time.Time) Wallet {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Wallet{
		AccountID:     accountID,
		Currency:      currency,
		Tier:          TierBasic,
		CreditLimit:   TierBasic.Benefits().CreditLimit,
		SpendingMonth: MonthKey(now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// WalletSnapshot is the unit persisted per account.
type WalletSnapshot struct {
	Wallet       Wallet        `json:"wallet"`
	Transactions []Transaction `json:"transactions"`
}

func (s *WalletSnapshot) Clone() *WalletSnapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Transactions = append([]Transaction(nil), s.Transactions...)
	return &cp
}

// LedgerBalance recomputes the balance from the opening balance and history.
func (s *WalletSnapshot) LedgerBalance() decimal.Decimal {
	sum := s.Wallet.OpeningBalance
	for _, tx := range s.Transactions {
		if tx.CountsTowardBalance() {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}
