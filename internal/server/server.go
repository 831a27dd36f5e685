package server

import (
	"net/http"
	"time"

	"farmcart-backend/internal/config"
	"farmcart-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const requestIDKey = "requestId"

type Server struct {
	cfg      config.Config
	orders   *usecase.OrderService
	wallets  *usecase.WalletService
	checkout *usecase.CheckoutService
	log      *zap.Logger
	limiter  *clientLimiter
	engine   *gin.Engine
}

func New(cfg config.Config, checkout *usecase.CheckoutService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:      cfg,
		orders:   checkout.Orders,
		wallets:  checkout.Wallets,
		checkout: checkout,
		log:      log,
		engine:   gin.New(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	s.routes()
	return s
}

// Handler wraps the router in CORS handling so preflight requests never reach gin.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}).Handler(s.engine)
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery(), s.requestID, s.accessLog)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/checkout", s.handleCheckout)

	orders := api.Group("/orders")
	orders.GET("", s.handleListOrders)
	orders.GET("/stats", s.handleOrderStats)
	orders.GET("/:id", s.handleGetOrder)
	orders.GET("/:id/receipt", s.handleReceipt)
	orders.POST("/:id/status", s.handleTransition)
	orders.POST("/:id/cancel", s.handleCancel)
	orders.POST("/:id/driver", s.handleAssignDriver)
	orders.POST("/:id/timeline", s.handleTimeline)

	w := api.Group("/wallets/:account")
	w.GET("", s.handleWallet)
	w.GET("/balance", s.handleBalance)
	w.GET("/transactions", s.handleTransactions)
	w.GET("/analytics", s.handleAnalytics)
	w.GET("/audit", s.handleAudit)
	w.GET("/tier", s.handleTierBenefits)
	w.POST("/deposit", s.handleDeposit)
	w.POST("/deduct", s.handleDeduct)
	w.POST("/withdraw", s.handleWithdraw)
	w.POST("/redeem", s.handleRedeem)
	w.POST("/freeze", s.handleFreeze)
	w.POST("/unfreeze", s.handleUnfreeze)
	w.POST("/payouts/:txId/settle", s.handleSettle)
	w.PUT("/tier", s.handleSetTier)
	w.PUT("/auto-reload", s.handleAutoReload)
	w.PUT("/spending-limit", s.handleSpendingLimit)
}

// requestID prefers the client's Idempotency-Key, then X-Request-Id, then a fresh uuid.
func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader("Idempotency-Key")
	if id == "" {
		id = c.GetHeader("X-Request-Id")
	}
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header("X-Request-Id", id)
	c.Next()
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Info("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("took", time.Since(start)),
		zap.String("requestId", c.GetString(requestIDKey)))
}
