package server

import (
	"net/http"
	"strconv"
	"strings"

	"farmcart-backend/internal/domain"
	"farmcart-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// bind decodes the JSON body into v and writes a 400 on failure.
func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return false
	}
	return true
}

// reply writes v, or maps err when set.
func (s *Server) reply(c *gin.Context, status int, v any, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(status, v)
}

func (s *Server) handleWallet(c *gin.Context) {
	w, err := s.wallets.Wallet(c.Request.Context(), c.Param("account"))
	s.reply(c, http.StatusOK, w, err)
}

func (s *Server) handleBalance(c *gin.Context) {
	w, err := s.wallets.Wallet(c.Request.Context(), c.Param("account"))
	s.reply(c, http.StatusOK, gin.H{
		"accountId": w.AccountID,
		"balance":   w.Balance,
		"available": w.Available(),
		"frozen":    w.Frozen,
		"currency":  w.Currency,
	}, err)
}

func (s *Server) handleTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	account := c.Param("account")
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.err(c, http.StatusBadRequest, "BadRequest", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	var (
		txs []domain.Transaction
		err error
	)
	switch {
	case c.Query("type") != "":
		txs, err = s.wallets.TransactionsByType(ctx, account, domain.TransactionType(strings.ToLower(c.Query("type"))))
	case c.Query("category") != "":
		txs, err = s.wallets.TransactionsByCategory(ctx, account, c.Query("category"))
	default:
		txs, err = s.wallets.Transactions(ctx, account, limit)
	}
	// Filtered lists are newest first too.
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	s.reply(c, http.StatusOK, gin.H{"transactions": txs}, err)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	a, err := s.wallets.SpendingAnalytics(c.Request.Context(), c.Param("account"))
	s.reply(c, http.StatusOK, a, err)
}

func (s *Server) handleAudit(c *gin.Context) {
	a, err := s.wallets.Audit(c.Request.Context(), c.Param("account"))
	s.reply(c, http.StatusOK, a, err)
}

func (s *Server) handleTierBenefits(c *gin.Context) {
	b, err := s.wallets.TierBenefits(c.Request.Context(), c.Param("account"))
	s.reply(c, http.StatusOK, b, err)
}

type depositReq struct {
	Amount      decimal.Decimal      `json:"amount"`
	Method      string               `json:"method"`
	Description domain.LocalizedText `json:"description"`
}

func (s *Server) handleDeposit(c *gin.Context) {
	var req depositReq
	if !s.bind(c, &req) {
		return
	}
	tx, err := s.wallets.Deposit(c.Request.Context(), c.Param("account"), usecase.DepositRequest{
		Amount:      req.Amount,
		Method:      req.Method,
		Description: req.Description,
	})
	s.reply(c, http.StatusCreated, tx, err)
}

type deductReq struct {
	Amount      decimal.Decimal      `json:"amount"`
	OrderID     string               `json:"orderId"`
	Description domain.LocalizedText `json:"description"`
	Category    string               `json:"category"`
}

func (s *Server) handleDeduct(c *gin.Context) {
	var req deductReq
	if !s.bind(c, &req) {
		return
	}
	res, err := s.wallets.Deduct(c.Request.Context(), c.Param("account"), usecase.DeductRequest{
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		Description: req.Description,
		Category:    req.Category,
	})
	s.reply(c, http.StatusCreated, res, err)
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Method string          `json:"method"`
	}
	if !s.bind(c, &req) {
		return
	}
	tx, err := s.wallets.Withdraw(c.Request.Context(), c.Param("account"), req.Amount, req.Method)
	s.reply(c, http.StatusCreated, tx, err)
}

func (s *Server) handleSettle(c *gin.Context) {
	var req struct {
		Success bool `json:"success"`
	}
	if !s.bind(c, &req) {
		return
	}
	tx, err := s.wallets.SettlePayout(c.Request.Context(), c.Param("account"), c.Param("txId"), req.Success)
	s.reply(c, http.StatusOK, tx, err)
}

func (s *Server) handleRedeem(c *gin.Context) {
	var req struct {
		Points int64           `json:"points"`
		Value  decimal.Decimal `json:"value"`
	}
	if !s.bind(c, &req) {
		return
	}
	tx, err := s.wallets.RedeemLoyaltyPoints(c.Request.Context(), c.Param("account"), req.Points, req.Value)
	s.reply(c, http.StatusCreated, tx, err)
}

type amountReq struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleFreeze(c *gin.Context) {
	var req amountReq
	if !s.bind(c, &req) {
		return
	}
	w, err := s.wallets.Freeze(c.Request.Context(), c.Param("account"), req.Amount)
	s.reply(c, http.StatusOK, w, err)
}

func (s *Server) handleUnfreeze(c *gin.Context) {
	var req amountReq
	if !s.bind(c, &req) {
		return
	}
	w, err := s.wallets.Unfreeze(c.Request.Context(), c.Param("account"), req.Amount)
	s.reply(c, http.StatusOK, w, err)
}

func (s *Server) handleSetTier(c *gin.Context) {
	var req struct {
		Tier string `json:"tier"`
	}
	if !s.bind(c, &req) {
		return
	}
	w, err := s.wallets.SetTier(c.Request.Context(), c.Param("account"), domain.Tier(strings.ToLower(req.Tier)))
	s.reply(c, http.StatusOK, w, err)
}

func (s *Server) handleAutoReload(c *gin.Context) {
	var req domain.AutoReload
	if !s.bind(c, &req) {
		return
	}
	w, err := s.wallets.ConfigureAutoReload(c.Request.Context(), c.Param("account"), req)
	s.reply(c, http.StatusOK, w, err)
}

func (s *Server) handleSpendingLimit(c *gin.Context) {
	var req struct {
		Limit decimal.Decimal `json:"limit"`
	}
	if !s.bind(c, &req) {
		return
	}
	w, err := s.wallets.SetSpendingLimit(c.Request.Context(), c.Param("account"), req.Limit)
	s.reply(c, http.StatusOK, w, err)
}
