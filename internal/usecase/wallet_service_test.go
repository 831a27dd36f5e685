package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"farmcart-backend/internal/domain"
	"farmcart-backend/internal/lock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newWalletService(repo *fakeWalletRepo, c *clock) *WalletService {
	return NewWalletService(repo, WalletOptions{Now: c.Now})
}

func TestKhaltiDepositThenGoldDeduct(t *testing.T) {
	ctx := context.Background()
	repo := &fakeWalletRepo{}
	svc := newWalletService(repo, newClock())

	tx, err := svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("1000"), Method: "khalti"})
	require.NoError(t, err)
	assert.True(t, tx.Fee.IsZero())
	assert.Equal(t, domain.TxTopup, tx.Type)
	w, _ := svc.Wallet(ctx, "acct")
	assert.True(t, w.Balance.Equal(dec("1000")))
	assert.Equal(t, int64(10), w.LoyaltyPoints)

	_, err = svc.SetTier(ctx, "acct", domain.TierGold)
	require.NoError(t, err)

	before, _ := svc.Transactions(ctx, "acct", 0)
	res, err := svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("300"), OrderID: "ORD_1"})
	require.NoError(t, err)
	assert.True(t, res.Payment.Amount.Equal(dec("-300")))
	require.NotNil(t, res.Cashback)
	assert.True(t, res.Cashback.Amount.Equal(dec("9")))
	assert.Equal(t, res.Payment.ID, res.Cashback.CausedBy)
	assert.Nil(t, res.Reload)

	after, _ := svc.Transactions(ctx, "acct", 0)
	assert.Len(t, after, len(before)+2)
	assert.Equal(t, domain.TxCashback, after[0].Type)
	assert.Equal(t, domain.TxPayment, after[1].Type)

	w, _ = svc.Wallet(ctx, "acct")
	assert.True(t, w.Balance.Equal(dec("709")))
	assert.True(t, w.TotalSpent.Equal(dec("300")))
	assert.True(t, w.CashbackEarned.Equal(dec("9")))
	assert.True(t, w.TotalEarned.Equal(dec("9")))
	assert.True(t, w.MonthlySpending.Equal(dec("300")))
	assert.True(t, w.CreditLimit.Equal(dec("15000")))

	audit, err := svc.Audit(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, audit.Consistent)
}

func TestDepositFeeAndValidation(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	tx, err := svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("250"), Method: "esewa"})
	require.NoError(t, err)
	assert.True(t, tx.Fee.Equal(dec("5")))
	assert.True(t, tx.Amount.Equal(dec("250")))
	bal, _ := svc.Balance(ctx, "acct")
	assert.True(t, bal.Equal(dec("250")))
	w, _ := svc.Wallet(ctx, "acct")
	assert.Equal(t, int64(2), w.LoyaltyPoints)

	for _, amt := range []string{"0", "-10", "0.001"} {
		_, err := svc.Deposit(ctx, "acct", DepositRequest{Amount: dec(amt), Method: "khalti"})
		var inv InvalidAmountError
		assert.True(t, errors.As(err, &inv), amt)
	}
	_, err = svc.Deposit(ctx, " ", DepositRequest{Amount: dec("1"), Method: "khalti"})
	var acct InvalidAccountError
	assert.True(t, errors.As(err, &acct))
}

func TestDeductInsufficientFundsMutatesNothing(t *testing.T) {
	ctx := context.Background()
	repo := &fakeWalletRepo{}
	svc := newWalletService(repo, newClock())
	_, err := svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("500"), Method: "khalti"})
	require.NoError(t, err)
	_, err = svc.Freeze(ctx, "acct", dec("300"))
	require.NoError(t, err)
	puts := repo.puts

	_, err = svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("250")})
	var insufficient InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, insufficient.Available.Equal(dec("200")))

	w, _ := svc.Wallet(ctx, "acct")
	assert.True(t, w.Balance.Equal(dec("500")))
	assert.True(t, w.TotalSpent.IsZero())
	txs, _ := svc.Transactions(ctx, "acct", 0)
	assert.Len(t, txs, 1)
	assert.Equal(t, puts, repo.puts)
}

func TestCashbackRates(t *testing.T) {
	cases := map[domain.Tier]string{
		domain.TierBasic:    "10",
		domain.TierSilver:   "20",
		domain.TierGold:     "30",
		domain.TierPlatinum: "50",
	}
	for tier, want := range cases {
		t.Run(string(tier), func(t *testing.T) {
			ctx := context.Background()
			svc := newWalletService(&fakeWalletRepo{}, newClock())
			_, _ = svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("2000"), Method: "khalti"})
			_, err := svc.SetTier(ctx, "acct", tier)
			require.NoError(t, err)
			res, err := svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("1000")})
			require.NoError(t, err)
			require.NotNil(t, res.Cashback)
			assert.True(t, res.Cashback.Amount.Equal(dec(want)), res.Cashback.Amount.String())
		})
	}
}

func TestCashbackRoundsToZeroIsSkipped(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	_, _ = svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("10"), Method: "khalti"})
	res, err := svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("0.40")})
	require.NoError(t, err)
	assert.Nil(t, res.Cashback)
	txs, _ := svc.Transactions(ctx, "acct", 0)
	assert.Len(t, txs, 2)
}

func TestAutoReloadAfterCashback(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	_, _ = svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("600"), Method: "khalti"})
	_, err := svc.ConfigureAutoReload(ctx, "acct", domain.AutoReload{Enabled: true, Amount: dec("1000"), Threshold: dec("200")})
	require.NoError(t, err)

	res, err := svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("500"), OrderID: "o-9"})
	require.NoError(t, err)
	require.NotNil(t, res.Cashback)
	require.NotNil(t, res.Reload)
	assert.True(t, res.Reload.Amount.Equal(dec("1000")))
	assert.Equal(t, "khalti", res.Reload.Method)
	assert.Equal(t, res.Payment.ID, res.Reload.CausedBy)

	txs, _ := svc.Transactions(ctx, "acct", 3)
	assert.Equal(t, []domain.TransactionType{domain.TxTopup, domain.TxCashback, domain.TxPayment}, []domain.TransactionType{txs[0].Type, txs[1].Type, txs[2].Type})

	w, _ := svc.Wallet(ctx, "acct")
	assert.True(t, w.Balance.Equal(dec("1105")), w.Balance.String())
	assert.True(t, w.CashbackEarned.Equal(dec("5")))
	assert.Equal(t, int64(16), w.LoyaltyPoints)

	cashbacks, _ := svc.TransactionsByType(ctx, "acct", domain.TxCashback)
	assert.Len(t, cashbacks, 1)
}

func TestAutoReloadNotTriggeredAboveThreshold(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	_, _ = svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("1000"), Method: "khalti"})
	_, _ = svc.ConfigureAutoReload(ctx, "acct", domain.AutoReload{Enabled: true, Amount: dec("500"), Threshold: dec("100")})
	res, err := svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("100")})
	require.NoError(t, err)
	assert.Nil(t, res.Reload)
}

func TestConfigureAutoReloadValidation(t *testing.T) {
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	_, err := svc.ConfigureAutoReload(context.Background(), "acct", domain.AutoReload{Enabled: true})
	var inv InvalidAmountError
	require.True(t, errors.As(err, &inv))
	w, err := svc.ConfigureAutoReload(context.Background(), "acct", domain.AutoReload{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, DefaultReloadMethod, w.AutoReload.Method)
}

func TestWithdrawAndSettle(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	_, _ = svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("1000"), Method: "khalti"})

	ok, err := svc.Withdraw(ctx, "acct", dec("400"), "bank")
	require.NoError(t, err)
	assert.Equal(t, domain.TxPending, ok.Status)
	assert.True(t, ok.Fee.Equal(dec("6")))
	failed, err := svc.Withdraw(ctx, "acct", dec("100"), "bank")
	require.NoError(t, err)

	w, _ := svc.Wallet(ctx, "acct")
	assert.True(t, w.Balance.Equal(dec("500")))
	assert.True(t, w.PendingPayouts.Equal(dec("500")))
	audit, _ := svc.Audit(ctx, "acct")
	assert.True(t, audit.Consistent)

	settled, err := svc.SettlePayout(ctx, "acct", ok.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, settled.Status)
	_, err = svc.SettlePayout(ctx, "acct", failed.ID, false)
	require.NoError(t, err)

	w, _ = svc.Wallet(ctx, "acct")
	assert.True(t, w.Balance.Equal(dec("600")))
	assert.True(t, w.PendingPayouts.IsZero())
	audit, _ = svc.Audit(ctx, "acct")
	assert.True(t, audit.Consistent, audit.Drift.String())

	_, err = svc.SettlePayout(ctx, "acct", ok.ID, true)
	var state TransactionStateError
	assert.True(t, errors.As(err, &state))
	_, err = svc.SettlePayout(ctx, "acct", "missing", true)
	var nf TransactionNotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = svc.Withdraw(ctx, "acct", dec("601"), "bank")
	var insufficient InsufficientFundsError
	assert.True(t, errors.As(err, &insufficient))
}

func TestRedeemLoyaltyPoints(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	_, _ = svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("1500"), Method: "khalti"})

	_, err := svc.RedeemLoyaltyPoints(ctx, "acct", 16, dec("16"))
	var pts InsufficientPointsError
	require.True(t, errors.As(err, &pts))
	assert.Equal(t, int64(15), pts.Available)

	tx, err := svc.RedeemLoyaltyPoints(ctx, "acct", 10, dec("25"))
	require.NoError(t, err)
	assert.Equal(t, domain.TxReward, tx.Type)
	w, _ := svc.Wallet(ctx, "acct")
	assert.Equal(t, int64(5), w.LoyaltyPoints)
	assert.True(t, w.Balance.Equal(dec("1525")))
	assert.True(t, w.TotalEarned.Equal(dec("25")))
}

func TestFreezeUnfreeze(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	_, _ = svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("100"), Method: "khalti"})

	_, err := svc.Freeze(ctx, "acct", dec("101"))
	var insufficient InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))

	w, err := svc.Freeze(ctx, "acct", dec("60"))
	require.NoError(t, err)
	assert.True(t, w.Frozen.Equal(dec("60")))
	avail, _ := svc.AvailableBalance(ctx, "acct")
	assert.True(t, avail.Equal(dec("40")))

	w, err = svc.Unfreeze(ctx, "acct", dec("100"))
	require.NoError(t, err)
	assert.True(t, w.Frozen.IsZero())
	txs, _ := svc.Transactions(ctx, "acct", 0)
	assert.Len(t, txs, 1)
}

func TestRefundCreditsBalance(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	tx, err := svc.Refund(ctx, "acct", dec("120"), "o-1", domain.LocalizedText{})
	require.NoError(t, err)
	assert.Equal(t, domain.TxRefund, tx.Type)
	assert.Equal(t, "o-1", tx.OrderID)
	assert.Contains(t, tx.Description.EN, "o-1")
	bal, _ := svc.Balance(ctx, "acct")
	assert.True(t, bal.Equal(dec("120")))
}

func TestSpendingAnalyticsAndMonthRollover(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	svc := newWalletService(&fakeWalletRepo{}, c)
	_, _ = svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("5000"), Method: "khalti"})
	_, _ = svc.SetSpendingLimit(ctx, "acct", dec("1000"))
	_, _ = svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("300"), Category: "vegetables"})
	_, _ = svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("200"), Category: "fruits"})
	_, _ = svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("100"), Category: "vegetables"})

	a, err := svc.SpendingAnalytics(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, "2026-05", a.Month)
	assert.Equal(t, 3, a.Count)
	assert.True(t, a.Total.Equal(dec("600")))
	assert.True(t, a.DailyAverage.Equal(dec("60")))
	assert.True(t, a.WeeklyAverage.Equal(dec("420")))
	assert.True(t, a.ByCategory["vegetables"].Equal(dec("400")))
	assert.True(t, a.BudgetRemaining.Equal(dec("400")))

	veg, _ := svc.TransactionsByCategory(ctx, "acct", "vegetables")
	assert.Len(t, veg, 4)

	c.Advance(31 * 24 * time.Hour)
	_, _ = svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("50")})
	w, _ := svc.Wallet(ctx, "acct")
	assert.Equal(t, "2026-06", w.SpendingMonth)
	assert.True(t, w.MonthlySpending.Equal(dec("50")))
	a, _ = svc.SpendingAnalytics(ctx, "acct")
	assert.Equal(t, 1, a.Count)
	assert.True(t, a.ByCategory[DefaultCategory].Equal(dec("50")))
}

func TestRefundOrderCreditsOnce(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	first, err := svc.RefundOrder(ctx, "acct", dec("250"), "o-7")
	require.NoError(t, err)
	again, err := svc.RefundOrder(ctx, "acct", dec("250"), "o-7")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	bal, _ := svc.Balance(ctx, "acct")
	assert.True(t, bal.Equal(dec("250")), bal.String())
	refunds, _ := svc.TransactionsByType(ctx, "acct", domain.TxRefund)
	assert.Len(t, refunds, 1)

	_, err = svc.RefundOrder(ctx, "acct", dec("10"), "")
	var inv InvalidAmountError
	assert.True(t, errors.As(err, &inv))
}

func TestWalletPersistenceFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	repo := &fakeWalletRepo{}
	svc := newWalletService(repo, newClock())
	_, err := svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("600"), Method: "khalti"})
	require.NoError(t, err)
	_, err = svc.SetTier(ctx, "acct", domain.TierGold)
	require.NoError(t, err)
	_, err = svc.ConfigureAutoReload(ctx, "acct", domain.AutoReload{Enabled: true, Amount: dec("1000"), Threshold: dec("200")})
	require.NoError(t, err)
	before, _ := svc.Wallet(ctx, "acct")

	repo.setFail(true)
	_, err = svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("500"), OrderID: "o-1"})
	require.ErrorIs(t, err, errDiskFull)

	after, _ := svc.Wallet(ctx, "acct")
	assert.True(t, after.Balance.Equal(before.Balance), after.Balance.String())
	assert.True(t, after.TotalSpent.Equal(before.TotalSpent))
	assert.True(t, after.MonthlySpending.Equal(before.MonthlySpending))
	assert.True(t, after.CashbackEarned.Equal(before.CashbackEarned))
	assert.True(t, after.TotalEarned.Equal(before.TotalEarned))
	assert.Equal(t, before.LoyaltyPoints, after.LoyaltyPoints)
	txs, _ := svc.Transactions(ctx, "acct", 0)
	assert.Len(t, txs, 1)
	stored, ok, err := repo.LoadWallet(ctx, "acct")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.Wallet.Balance.Equal(dec("600")))

	repo.setFail(false)
	res, err := svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("500"), OrderID: "o-1"})
	require.NoError(t, err)
	assert.NotNil(t, res.Cashback)
	assert.NotNil(t, res.Reload)
	audit, _ := svc.Audit(ctx, "acct")
	assert.True(t, audit.Consistent)
}

func TestWalletServicesSharingAStore(t *testing.T) {
	ctx := context.Background()
	repo := &fakeWalletRepo{}
	locks := lock.NewKeyedMutex()
	c := newClock()
	a := NewWalletService(repo, WalletOptions{Locker: locks, Now: c.Now, Shared: true})
	b := NewWalletService(repo, WalletOptions{Locker: locks, Now: c.Now, Shared: true})

	_, err := a.Deposit(ctx, "acct", DepositRequest{Amount: dec("1000"), Method: "khalti"})
	require.NoError(t, err)
	_, err = b.Deposit(ctx, "acct", DepositRequest{Amount: dec("500"), Method: "khalti"})
	require.NoError(t, err)
	_, err = a.Deposit(ctx, "acct", DepositRequest{Amount: dec("1"), Method: "khalti"})
	require.NoError(t, err)

	stored, ok, err := repo.LoadWallet(ctx, "acct")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.Wallet.Balance.Equal(dec("1501")), stored.Wallet.Balance.String())
	assert.Len(t, stored.Transactions, 3)
	for _, svc := range []*WalletService{a, b} {
		bal, _ := svc.Balance(ctx, "acct")
		assert.True(t, bal.Equal(dec("1501")), bal.String())
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		svc := a
		if i%2 == 1 {
			svc = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("100")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	audit, err := b.Audit(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, audit.Consistent, audit.Drift.String())
	assert.Equal(t, 3+10*2, audit.Transactions)
	assert.True(t, audit.Balance.Equal(dec("511")), audit.Balance.String())
}

func TestConcurrentLedgerMutations(t *testing.T) {
	ctx := context.Background()
	svc := newWalletService(&fakeWalletRepo{}, newClock())
	_, err := svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("1000"), Method: "khalti"})
	require.NoError(t, err)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Deposit(ctx, "acct", DepositRequest{Amount: dec("10"), Method: "khalti"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Deduct(ctx, "acct", DeductRequest{Amount: dec("10")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	audit, err := svc.Audit(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, audit.Consistent, audit.Drift.String())
	assert.Equal(t, 1+3*n, audit.Transactions)
	assert.Equal(t, n, audit.ByType[string(domain.TxPayment)])
	assert.Equal(t, n, audit.ByType[string(domain.TxCashback)])
	assert.True(t, audit.Balance.Equal(dec("1002.50")), audit.Balance.String())
}
