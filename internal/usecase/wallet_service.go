package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"farmcart-backend/internal/domain"
	"farmcart-backend/internal/lock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// FeeFreeMethod is the deposit method that carries no fee.
	FeeFreeMethod       = "khalti"
	DefaultReloadMethod = FeeFreeMethod
	DefaultCategory     = "groceries"
)

var errAlreadyRefunded = errors.New("order already refunded")

var (
	depositFeeRate  = decimal.NewFromInt(2)
	withdrawFeeRate = decimal.NewFromFloat(1.5)
	pointsPerUnit   = decimal.NewFromInt(100)
)

type WalletOptions struct {
	Locker       Locker
	Publisher    Publisher
	Logger       *zap.Logger
	Currency     string
	ReloadMethod string
	Now          func() time.Time

	// Shared means other processes write the same store, so reads skip the cache.
	Shared bool
}

// WalletService keeps one ledger per account. Accounts load lazily on first access and
// every mutation re-reads the account from the repo once the lock is held.
type WalletService struct {
	repo         WalletRepo
	locks        Locker
	pub          Publisher
	log          *zap.Logger
	currency     string
	reloadMethod string
	now          func() time.Time
	shared       bool

	mu       sync.RWMutex
	accounts map[string]*domain.WalletSnapshot
}

func NewWalletService(repo WalletRepo, opts WalletOptions) *WalletService {
	s := &WalletService{
		repo:         repo,
		locks:        opts.Locker,
		pub:          opts.Publisher,
		log:          opts.Logger,
		currency:     opts.Currency,
		reloadMethod: opts.ReloadMethod,
		now:          opts.Now,
		shared:       opts.Shared,
		accounts:     map[string]*domain.WalletSnapshot{},
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
	if s.currency == "" {
		s.currency = domain.DefaultCurrency
	}
	if s.reloadMethod == "" {
		s.reloadMethod = DefaultReloadMethod
	}
	if s.now == nil {
		s.now = utcNow
	}
	return s
}

func (s *WalletService) load(ctx context.Context, account string) (*domain.WalletSnapshot, error) {
	if strings.TrimSpace(account) == "" {
		return nil, InvalidAccountError("account id required")
	}
	if s.shared {
		return s.fetch(ctx, account)
	}
	s.mu.RLock()
	snap, ok := s.accounts[account]
	s.mu.RUnlock()
	if ok {
		return snap, nil
	}
	snap, err := s.fetch(ctx, account)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.accounts[account]; ok {
		return cur, nil
	}
	s.accounts[account] = snap
	return snap, nil
}

// fetch reads the account from the repo, bypassing the cache. Unknown accounts start empty.
func (s *WalletService) fetch(ctx context.Context, account string) (*domain.WalletSnapshot, error) {
	snap, found, err := s.repo.LoadWallet(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load wallet %s: %w", account, err)
	}
	if !found {
		snap = &domain.WalletSnapshot{Wallet: domain.NewWallet(account, s.currency, s.now())}
	}
	return snap, nil
}

// mutate runs fn on a copy of the account and installs it once the copy is saved.
func (s *WalletService) mutate(ctx context.Context, account, op string, fn func(snap *domain.WalletSnapshot, now time.Time) error) (*domain.WalletSnapshot, error) {
	if strings.TrimSpace(account) == "" {
		return nil, InvalidAccountError("account id required")
	}
	unlock, err := s.locks.Lock(ctx, "wallet:"+account)
	if err != nil {
		return nil, err
	}
	defer unlock()
	cur, err := s.fetch(ctx, account)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	now := s.now()
	if err := fn(next, now); err != nil {
		s.log.Warn("wallet "+op+" rejected", zap.String("account", account), zap.Error(err))
		return nil, err
	}
	next.Wallet.UpdatedAt = now
	if err := s.repo.PutWallet(ctx, next); err != nil {
		s.log.Error("wallet "+op+" not saved", zap.String("account", account), zap.Error(err))
		return nil, fmt.Errorf("save wallet %s: %w", account, err)
	}
	s.mu.Lock()
	s.accounts[account] = next
	s.mu.Unlock()
	s.log.Info("wallet "+op,
		zap.String("account", account),
		zap.String("balance", next.Wallet.Balance.StringFixed(2)),
		zap.String("frozen", next.Wallet.Frozen.StringFixed(2)),
		zap.Int("transactions", len(next.Transactions)))
	s.pub.Publish(ctx, TopicWallets, map[string]any{
		"event":     op,
		"accountId": account,
		"balance":   next.Wallet.Balance,
		"updatedAt": now,
	})
	return next, nil
}

func (s *WalletService) record(snap *domain.WalletSnapshot, now time.Time, tx domain.Transaction) domain.Transaction {
	tx.ID = newID()
	tx.AccountID = snap.Wallet.AccountID
	tx.Currency = snap.Wallet.Currency
	if tx.Status == "" {
		tx.Status = domain.TxCompleted
	}
	tx.Amount = domain.Round(tx.Amount)
	tx.Fee = domain.Round(tx.Fee)
	tx.CreatedAt = now
	tx.UpdatedAt = now
	snap.Transactions = append(snap.Transactions, tx)
	return tx
}

func positive(amount decimal.Decimal, what string) (decimal.Decimal, error) {
	amount = domain.Round(amount)
	if !amount.IsPositive() {
		return amount, InvalidAmountError(what + " must be greater than zero")
	}
	return amount, nil
}

type DepositRequest struct {
	Amount      decimal.Decimal
	Method      string
	Description domain.LocalizedText
}

func (s *WalletService) Deposit(ctx context.Context, account string, req DepositRequest) (domain.Transaction, error) {
	amount, err := positive(req.Amount, "deposit")
	if err != nil {
		return domain.Transaction{}, err
	}
	var tx domain.Transaction
	_, err = s.mutate(ctx, account, "deposit", func(snap *domain.WalletSnapshot, now time.Time) error {
		tx = s.deposit(snap, now, amount, req.Method, req.Description, "")
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// deposit credits amount as a topup. It is also the auto-reload path, so it must never
// deduct or earn cashback.
func (s *WalletService) deposit(snap *domain.WalletSnapshot, now time.Time, amount decimal.Decimal, method string, desc domain.LocalizedText, causedBy string) domain.Transaction {
	fee := decimal.Zero
	if method != FeeFreeMethod {
		fee = domain.Percent(amount, depositFeeRate)
	}
	if desc.IsZero() {
		desc = domain.LocalizedText{
			EN: "Wallet top-up via " + method,
			NE: method + " मार्फत वालेट रिचार्ज",
		}
	}
	w := &snap.Wallet
	w.Balance = w.Balance.Add(amount)
	w.LoyaltyPoints += amount.Div(pointsPerUnit).Floor().IntPart()
	return s.record(snap, now, domain.Transaction{
		Type:        domain.TxTopup,
		Amount:      amount,
		From:        method,
		To:          w.AccountID,
		Description: desc,
		Method:      method,
		Fee:         fee,
		CausedBy:    causedBy,
	})
}

type DeductRequest struct {
	Amount      decimal.Decimal
	OrderID     string
	Description domain.LocalizedText
	Category    string
}

// DeductResult lists every entry a deduction produced, in ledger order.
type DeductResult struct {
	Payment  domain.Transaction  `json:"payment"`
	Cashback *domain.Transaction `json:"cashback,omitempty"`
	Reload   *domain.Transaction `json:"reload,omitempty"`
}

func (s *WalletService) Deduct(ctx context.Context, account string, req DeductRequest) (DeductResult, error) {
	amount, err := positive(req.Amount, "payment")
	if err != nil {
		return DeductResult{}, err
	}
	var res DeductResult
	_, err = s.mutate(ctx, account, "deduct", func(snap *domain.WalletSnapshot, now time.Time) error {
		w := &snap.Wallet
		if avail := w.Available(); avail.LessThan(amount) {
			return InsufficientFundsError{Available: avail, Requested: amount}
		}
		if key := domain.MonthKey(now); w.SpendingMonth != key {
			w.SpendingMonth = key
			w.MonthlySpending = decimal.Zero
		}
		category := req.Category
		if category == "" {
			category = DefaultCategory
		}
		desc := req.Description
		if desc.IsZero() {
			desc = domain.LocalizedText{EN: "Payment", NE: "भुक्तानी"}
			if req.OrderID != "" {
				desc = domain.LocalizedText{EN: "Payment for order " + req.OrderID, NE: "अर्डर " + req.OrderID + " को भुक्तानी"}
			}
		}
		w.Balance = w.Balance.Sub(amount)
		w.TotalSpent = w.TotalSpent.Add(amount)
		w.MonthlySpending = w.MonthlySpending.Add(amount)
		res.Payment = s.record(snap, now, domain.Transaction{
			Type:        domain.TxPayment,
			Amount:      amount.Neg(),
			From:        w.AccountID,
			Description: desc,
			OrderID:     req.OrderID,
			Method:      "wallet",
			Category:    category,
		})

		if cb := domain.Percent(amount, w.Tier.Benefits().CashbackRate); cb.IsPositive() {
			w.Balance = w.Balance.Add(cb)
			w.CashbackEarned = w.CashbackEarned.Add(cb)
			w.TotalEarned = w.TotalEarned.Add(cb)
			tx := s.record(snap, now, domain.Transaction{
				Type:   domain.TxCashback,
				Amount: cb,
				To:     w.AccountID,
				Description: domain.LocalizedText{
					EN: fmt.Sprintf("Cashback (%s tier)", w.Tier),
					NE: "क्यासब्याक",
				},
				OrderID:  req.OrderID,
				Category: category,
				CausedBy: res.Payment.ID,
			})
			res.Cashback = &tx
		}

		if ar := w.AutoReload; ar.Enabled && ar.Amount.IsPositive() && w.Balance.LessThanOrEqual(ar.Threshold) {
			method := ar.Method
			if method == "" {
				method = s.reloadMethod
			}
			tx := s.deposit(snap, now, domain.Round(ar.Amount), method, domain.LocalizedText{
				EN: "Auto-reload via " + method,
				NE: method + " मार्फत स्वतः रिचार्ज",
			}, res.Payment.ID)
			res.Reload = &tx
		}
		return nil
	})
	if err != nil {
		return DeductResult{}, err
	}
	return res, nil
}

func (s *WalletService) Withdraw(ctx context.Context, account string, amount decimal.Decimal, method string) (domain.Transaction, error) {
	amount, err := positive(amount, "withdrawal")
	if err != nil {
		return domain.Transaction{}, err
	}
	var tx domain.Transaction
	_, err = s.mutate(ctx, account, "withdraw", func(snap *domain.WalletSnapshot, now time.Time) error {
		w := &snap.Wallet
		if avail := w.Available(); avail.LessThan(amount) {
			return InsufficientFundsError{Available: avail, Requested: amount}
		}
		w.Balance = w.Balance.Sub(amount)
		w.PendingPayouts = w.PendingPayouts.Add(amount)
		tx = s.record(snap, now, domain.Transaction{
			Type:        domain.TxPayout,
			Amount:      amount.Neg(),
			Status:      domain.TxPending,
			From:        w.AccountID,
			To:          method,
			Description: domain.LocalizedText{EN: "Withdrawal to " + method, NE: method + " मा रकम झिकियो"},
			Method:      method,
			Fee:         domain.Percent(amount, withdrawFeeRate),
		})
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// SettlePayout completes a pending payout, or fails it and returns the funds to the balance.
func (s *WalletService) SettlePayout(ctx context.Context, account, txID string, success bool) (domain.Transaction, error) {
	var out domain.Transaction
	_, err := s.mutate(ctx, account, "settle", func(snap *domain.WalletSnapshot, now time.Time) error {
		i := indexOfTx(snap.Transactions, txID)
		if i < 0 {
			return TransactionNotFoundError(txID)
		}
		tx := &snap.Transactions[i]
		if tx.Type != domain.TxPayout || tx.Status != domain.TxPending {
			return TransactionStateError(fmt.Sprintf("transaction %s is not a pending payout", txID))
		}
		amount := tx.Amount.Abs()
		w := &snap.Wallet
		w.PendingPayouts = w.PendingPayouts.Sub(amount)
		if success {
			tx.Status = domain.TxCompleted
		} else {
			tx.Status = domain.TxFailed
			w.Balance = w.Balance.Add(amount)
		}
		tx.UpdatedAt = now
		out = *tx
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return out, nil
}

func indexOfTx(txs []domain.Transaction, id string) int {
	for i := range txs {
		if txs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *WalletService) RedeemLoyaltyPoints(ctx context.Context, account string, points int64, value decimal.Decimal) (domain.Transaction, error) {
	if points <= 0 {
		return domain.Transaction{}, InvalidAmountError("points must be greater than zero")
	}
	value, err := positive(value, "reward value")
	if err != nil {
		return domain.Transaction{}, err
	}
	var tx domain.Transaction
	_, err = s.mutate(ctx, account, "redeem", func(snap *domain.WalletSnapshot, now time.Time) error {
		w := &snap.Wallet
		if w.LoyaltyPoints < points {
			return InsufficientPointsError{Available: w.LoyaltyPoints, Requested: points}
		}
		w.LoyaltyPoints -= points
		w.Balance = w.Balance.Add(value)
		w.TotalEarned = w.TotalEarned.Add(value)
		tx = s.record(snap, now, domain.Transaction{
			Type:   domain.TxReward,
			Amount: value,
			To:     w.AccountID,
			Description: domain.LocalizedText{
				EN: fmt.Sprintf("Redeemed %d loyalty points", points),
				NE: fmt.Sprintf("%d लोयल्टी पोइन्ट साटियो", points),
			},
		})
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// Refund credits money back for an order.
func (s *WalletService) Refund(ctx context.Context, account string, amount decimal.Decimal, orderID string, desc domain.LocalizedText) (domain.Transaction, error) {
	amount, err := positive(amount, "refund")
	if err != nil {
		return domain.Transaction{}, err
	}
	if desc.IsZero() {
		desc = domain.LocalizedText{EN: "Refund for order " + orderID, NE: "अर्डर " + orderID + " को फिर्ता"}
	}
	var tx domain.Transaction
	_, err = s.mutate(ctx, account, "refund", func(snap *domain.WalletSnapshot, now time.Time) error {
		snap.Wallet.Balance = snap.Wallet.Balance.Add(amount)
		tx = s.record(snap, now, domain.Transaction{
			Type:        domain.TxRefund,
			Amount:      amount,
			To:          snap.Wallet.AccountID,
			Description: desc,
			OrderID:     orderID,
		})
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// RefundOrder credits the order total back once. When the ledger already holds a refund
// for orderID that entry is returned and nothing is written.
func (s *WalletService) RefundOrder(ctx context.Context, account string, amount decimal.Decimal, orderID string) (domain.Transaction, error) {
	amount, err := positive(amount, "refund")
	if err != nil {
		return domain.Transaction{}, err
	}
	if orderID == "" {
		return domain.Transaction{}, InvalidAmountError("refund needs an order id")
	}
	var tx domain.Transaction
	_, err = s.mutate(ctx, account, "refund", func(snap *domain.WalletSnapshot, now time.Time) error {
		for _, t := range snap.Transactions {
			if t.Type == domain.TxRefund && t.OrderID == orderID {
				tx = t
				return errAlreadyRefunded
			}
		}
		snap.Wallet.Balance = snap.Wallet.Balance.Add(amount)
		tx = s.record(snap, now, domain.Transaction{
			Type:        domain.TxRefund,
			Amount:      amount,
			To:          snap.Wallet.AccountID,
			Description: domain.LocalizedText{EN: "Refund for order " + orderID, NE: "अर्डर " + orderID + " को फिर्ता"},
			OrderID:     orderID,
		})
		return nil
	})
	if errors.Is(err, errAlreadyRefunded) {
		return tx, nil
	}
	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

func (s *WalletService) Freeze(ctx context.Context, account string, amount decimal.Decimal) (domain.Wallet, error) {
	amount, err := positive(amount, "freeze amount")
	if err != nil {
		return domain.Wallet{}, err
	}
	snap, err := s.mutate(ctx, account, "freeze", func(snap *domain.WalletSnapshot, _ time.Time) error {
		w := &snap.Wallet
		if avail := w.Available(); avail.LessThan(amount) {
			return InsufficientFundsError{Available: avail, Requested: amount}
		}
		w.Frozen = w.Frozen.Add(amount)
		return nil
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return snap.Wallet, nil
}

// Unfreeze releases up to amount; releasing more than is held clears the hold.
func (s *WalletService) Unfreeze(ctx context.Context, account string, amount decimal.Decimal) (domain.Wallet, error) {
	amount, err := positive(amount, "unfreeze amount")
	if err != nil {
		return domain.Wallet{}, err
	}
	snap, err := s.mutate(ctx, account, "unfreeze", func(snap *domain.WalletSnapshot, _ time.Time) error {
		w := &snap.Wallet
		w.Frozen = decimal.Max(decimal.Zero, w.Frozen.Sub(amount))
		return nil
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return snap.Wallet, nil
}

func (s *WalletService) SetTier(ctx context.Context, account string, tier domain.Tier) (domain.Wallet, error) {
	if !tier.Valid() {
		return domain.Wallet{}, InvalidAccountError(fmt.Sprintf("unknown tier %q", tier))
	}
	snap, err := s.mutate(ctx, account, "tier", func(snap *domain.WalletSnapshot, _ time.Time) error {
		snap.Wallet.Tier = tier
		snap.Wallet.CreditLimit = tier.Benefits().CreditLimit
		return nil
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return snap.Wallet, nil
}

func (s *WalletService) ConfigureAutoReload(ctx context.Context, account string, cfg domain.AutoReload) (domain.Wallet, error) {
	if cfg.Enabled {
		if !cfg.Amount.IsPositive() {
			return domain.Wallet{}, InvalidAmountError("reload amount must be greater than zero")
		}
		if cfg.Threshold.IsNegative() {
			return domain.Wallet{}, InvalidAmountError("reload threshold must not be negative")
		}
	}
	if cfg.Method == "" {
		cfg.Method = s.reloadMethod
	}
	cfg.Amount = domain.Round(cfg.Amount)
	cfg.Threshold = domain.Round(cfg.Threshold)
	snap, err := s.mutate(ctx, account, "auto-reload", func(snap *domain.WalletSnapshot, _ time.Time) error {
		snap.Wallet.AutoReload = cfg
		return nil
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return snap.Wallet, nil
}

// SetSpendingLimit stores an advisory monthly budget. Zero clears it.
func (s *WalletService) SetSpendingLimit(ctx context.Context, account string, limit decimal.Decimal) (domain.Wallet, error) {
	if limit.IsNegative() {
		return domain.Wallet{}, InvalidAmountError("spending limit must not be negative")
	}
	snap, err := s.mutate(ctx, account, "spending-limit", func(snap *domain.WalletSnapshot, _ time.Time) error {
		snap.Wallet.SpendingLimit = domain.Round(limit)
		return nil
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	return snap.Wallet, nil
}

func (s *WalletService) Wallet(ctx context.Context, account string) (domain.Wallet, error) {
	snap, err := s.load(ctx, account)
	if err != nil {
		return domain.Wallet{}, err
	}
	return snap.Wallet, nil
}

func (s *WalletService) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	w, err := s.Wallet(ctx, account)
	return w.Balance, err
}

func (s *WalletService) AvailableBalance(ctx context.Context, account string) (decimal.Decimal, error) {
	w, err := s.Wallet(ctx, account)
	return w.Available(), err
}

// Transactions returns the newest limit entries first. limit <= 0 returns everything.
func (s *WalletService) Transactions(ctx context.Context, account string, limit int) ([]domain.Transaction, error) {
	return s.history(ctx, account, limit, func(domain.Transaction) bool { return true })
}

func (s *WalletService) TransactionsByType(ctx context.Context, account string, t domain.TransactionType) ([]domain.Transaction, error) {
	return s.history(ctx, account, 0, func(tx domain.Transaction) bool { return tx.Type == t })
}

func (s *WalletService) TransactionsByCategory(ctx context.Context, account, category string) ([]domain.Transaction, error) {
	return s.history(ctx, account, 0, func(tx domain.Transaction) bool { return tx.Category == category })
}

func (s *WalletService) history(ctx context.Context, account string, limit int, keep func(domain.Transaction) bool) ([]domain.Transaction, error) {
	snap, err := s.load(ctx, account)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(snap.Transactions))
	for i := len(snap.Transactions) - 1; i >= 0; i-- {
		if keep(snap.Transactions[i]) {
			out = append(out, snap.Transactions[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type SpendingAnalytics struct {
	Month           string                     `json:"month"`
	Total           decimal.Decimal            `json:"total"`
	Count           int                        `json:"count"`
	DailyAverage    decimal.Decimal            `json:"dailyAverage"`
	WeeklyAverage   decimal.Decimal            `json:"weeklyAverage"`
	ByCategory      map[string]decimal.Decimal `json:"byCategory"`
	Limit           decimal.Decimal            `json:"limit"`
	BudgetRemaining decimal.Decimal            `json:"budgetRemaining"`
}

// SpendingAnalytics summarises completed payments of the current calendar month.
func (s *WalletService) SpendingAnalytics(ctx context.Context, account string) (SpendingAnalytics, error) {
	snap, err := s.load(ctx, account)
	if err != nil {
		return SpendingAnalytics{}, err
	}
	now := s.now()
	out := SpendingAnalytics{
		Month:      domain.MonthKey(now),
		ByCategory: map[string]decimal.Decimal{},
		Limit:      snap.Wallet.SpendingLimit,
	}
	for _, tx := range snap.Transactions {
		if tx.Type != domain.TxPayment || tx.Status != domain.TxCompleted || domain.MonthKey(tx.CreatedAt) != out.Month {
			continue
		}
		amt := tx.Amount.Abs()
		out.Total = out.Total.Add(amt)
		out.Count++
		out.ByCategory[tx.Category] = out.ByCategory[tx.Category].Add(amt)
	}
	days := decimal.NewFromInt(int64(now.UTC().Day()))
	out.DailyAverage = domain.Round(out.Total.Div(days))
	out.WeeklyAverage = domain.Round(out.Total.Div(days).Mul(decimal.NewFromInt(7)))
	if out.Limit.IsPositive() {
		out.BudgetRemaining = decimal.Max(decimal.Zero, out.Limit.Sub(out.Total))
	}
	return out, nil
}

func (s *WalletService) TierBenefits(ctx context.Context, account string) (domain.TierBenefits, error) {
	w, err := s.Wallet(ctx, account)
	if err != nil {
		return domain.TierBenefits{}, err
	}
	return w.Tier.Benefits(), nil
}

type AuditReport struct {
	AccountID     string          `json:"accountId"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance"`
	Drift         decimal.Decimal `json:"drift"`
	Consistent    bool            `json:"consistent"`
	Transactions  int             `json:"transactions"`
	ByType        map[string]int  `json:"byType"`
}

// Audit recomputes the balance from history and reports any drift.
func (s *WalletService) Audit(ctx context.Context, account string) (AuditReport, error) {
	snap, err := s.load(ctx, account)
	if err != nil {
		return AuditReport{}, err
	}
	ledger := snap.LedgerBalance()
	r := AuditReport{
		AccountID:     account,
		Balance:       snap.Wallet.Balance,
		LedgerBalance: ledger,
		Drift:         snap.Wallet.Balance.Sub(ledger),
		Transactions:  len(snap.Transactions),
		ByType:        map[string]int{},
	}
	r.Consistent = r.Drift.IsZero()
	for _, tx := range snap.Transactions {
		r.ByType[string(tx.Type)]++
	}
	if !r.Consistent {
		s.log.Error("wallet drift", zap.String("account", account), zap.String("drift", r.Drift.StringFixed(2)))
	}
	return r, nil
}
