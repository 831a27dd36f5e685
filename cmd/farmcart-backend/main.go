package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"farmcart-backend/internal/config"
	"farmcart-backend/internal/env"
	"farmcart-backend/internal/infrastructure/gateway"
	"farmcart-backend/internal/infrastructure/repo"
	"farmcart-backend/internal/lock"
	"farmcart-backend/internal/logging"
	"farmcart-backend/internal/mq"
	"farmcart-backend/internal/server"
	"farmcart-backend/internal/usecase"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	env.Load(".env", ".env.local")
	envDefaults, err := config.EnvDefaults()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := envDefaults
	flag.StringVar(&cfg.Env, "env", envDefaults.Env, "")
	flag.IntVar(&cfg.Port, "port", envDefaults.Port, "")
	flag.BoolVar(&cfg.LogJSON, "log-json", envDefaults.LogJSON, "")
	flag.StringVar(&cfg.LogLevel, "log-level", envDefaults.LogLevel, "")
	flag.StringVar(&cfg.Store, "store", envDefaults.Store, "memory, file, sqlite, postgres or mongo")
	flag.StringVar(&cfg.DataDir, "data", envDefaults.DataDir, "")
	flag.StringVar(&cfg.SQLitePath, "sqlite", envDefaults.SQLitePath, "")
	flag.StringVar(&cfg.RedisAddr, "redis", envDefaults.RedisAddr, "")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogJSON, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("exit", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("starting", zap.Any("config", cfg))

	orderRepo, walletRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// With Redis, other processes may write the same store.
	shared := cfg.RedisAddr != ""
	var (
		locker usecase.Locker = lock.NewKeyedMutex()
		pub    usecase.Publisher
	)
	if shared {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		locker = lock.NewRedisLocker(rdb, "farmcart:lock:", cfg.LockLease)
		pub = mq.NewRedisPublisher(rdb, log.Named("mq"))
		log.Info("redis enabled", zap.String("addr", cfg.RedisAddr))
	}

	orders, err := usecase.NewOrderService(ctx, orderRepo, usecase.OrderOptions{
		Locker:    locker,
		Publisher: pub,
		Logger:    log.Named("orders"),
		ETA:       cfg.DeliveryETA,
		Currency:  cfg.Currency,
		Shared:    shared,
	})
	if err != nil {
		return err
	}
	wallets := usecase.NewWalletService(walletRepo, usecase.WalletOptions{
		Locker:       locker,
		Publisher:    pub,
		Logger:       log.Named("wallets"),
		Currency:     cfg.Currency,
		ReloadMethod: cfg.ReloadMethod,
		Shared:       shared,
	})
	var authorizer usecase.PaymentAuthorizer = gateway.NewMockAuthorizer()
	if cfg.GatewayURL != "" {
		authorizer = &gateway.Client{
			BaseURL:    cfg.GatewayURL,
			MerchantID: cfg.GatewayMerchant,
			Key:        cfg.GatewayKey,
			Currency:   cfg.Currency,
		}
		log.Info("payment gateway enabled", zap.String("url", cfg.GatewayURL))
	}
	checkout := &usecase.CheckoutService{
		Orders:  orders,
		Wallets: wallets,
		Gateway: authorizer,
		Log:     log.Named("checkout"),
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(cfg, checkout, log.Named("http")).Handler(),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config) (usecase.OrderRepo, usecase.WalletRepo, func(), error) {
	switch cfg.Store {
	case "file":
		r, err := repo.NewFileRepo(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, r, func() {}, nil
	case "sqlite":
		if err := ensureDir(filepath.Dir(cfg.SQLitePath)); err != nil {
			return nil, nil, nil, err
		}
		r, err := repo.NewSQLiteRepo(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, r, func() { _ = r.Close() }, nil
	case "postgres":
		r, err := repo.NewPostgresRepo(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, r, func() { _ = r.Close() }, nil
	case "mongo":
		r, err := repo.NewMongoRepo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, r, func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = r.Close(c)
		}, nil
	default:
		return repo.NewMemoryOrderRepo(), repo.NewMemoryWalletRepo(), func() {}, nil
	}
}

func ensureDir(p string) error {
	if p == "" {
		return nil
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return os.MkdirAll(p, 0o755)
	}
	return nil
}
