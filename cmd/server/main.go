package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/campusmart/ledger/internal/adapter/gateway/paystack"
	"github.com/campusmart/ledger/internal/adapter/gateway/razorpay"
	httpAdapter "github.com/campusmart/ledger/internal/adapter/http"
	"github.com/campusmart/ledger/internal/adapter/http/handler"
	"github.com/campusmart/ledger/internal/adapter/http/middleware"
	"github.com/campusmart/ledger/internal/adapter/orders"
	postgresRepo "github.com/campusmart/ledger/internal/adapter/repository/postgres"
	redisRepo "github.com/campusmart/ledger/internal/adapter/repository/redis"
	"github.com/campusmart/ledger/internal/infrastructure/auth"
	"github.com/campusmart/ledger/internal/infrastructure/config"
	"github.com/campusmart/ledger/internal/infrastructure/eventpublisher"
	"github.com/campusmart/ledger/internal/infrastructure/logger"
	"github.com/campusmart/ledger/internal/infrastructure/metrics"
	"github.com/campusmart/ledger/internal/infrastructure/postgres"
	"github.com/campusmart/ledger/internal/infrastructure/redis"
	"github.com/campusmart/ledger/internal/infrastructure/sweeper"
	"github.com/campusmart/ledger/internal/usecase"
)

// limiterIdle is how long a client IP may stay quiet before its limiter is dropped.
const limiterIdle = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.AutoMigrate {
		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger).Up(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, redis.Config{
		URL:         cfg.RedisURL,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.RedisTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	logger.Info().Msg("connected to redis")

	// Initialize repositories
	idGen := postgresRepo.NewULIDGenerator()
	txManager := postgresRepo.NewTxManager(pool, postgresRepo.WithLockTimeout(cfg.DatabaseLockTimeout))
	walletRepo := postgresRepo.NewWalletRepository(pool)
	txRepo := postgresRepo.NewTransactionRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool, idGen)
	retrier := postgresRepo.NewRetrier(logger)
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	m := metrics.New()
	provider := newPaymentProvider(cfg)
	orderClient := orders.NewClient(cfg.OrderServiceURL, cfg.OrderServiceToken, cfg.OrderServiceTimeout)

	// Initialize use cases
	journalUC := usecase.NewJournalUseCase(txRepo, idGen)
	walletUC := usecase.NewWalletUseCase(txManager, walletRepo, txRepo, journalUC, outboxRepo, cache, retrier, idGen, m).
		WithCacheTTL(cfg.WalletCacheTTL)
	withdrawalUC := usecase.NewWithdrawalUseCase(txManager, walletUC, journalUC, txRepo, outboxRepo, auditRepo, retrier, idGen, m)
	settlementUC := usecase.NewSettlementUseCase(
		txManager, walletUC, journalUC, txRepo, outboxRepo, auditRepo,
		provider, orderClient, retrier, idGen, m,
		usecase.SettlementConfig{Currency: cfg.Currency, GatewayTimeout: cfg.GatewayTimeout},
	)
	orderUC := usecase.NewOrderSettlementUseCase(walletUC, orderClient, auditRepo, idGen, m)
	reconciliationUC := usecase.NewReconciliationUseCase(walletRepo, txRepo, m)

	// Initialize handlers
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		WalletHandler:      handler.NewWalletHandler(walletUC, settlementUC),
		WithdrawalHandler:  handler.NewWithdrawalHandler(withdrawalUC),
		PaymentHandler:     handler.NewPaymentHandler(settlementUC, orderUC),
		TransactionHandler: handler.NewTransactionHandler(journalUC),
		AdminHandler: handler.NewAdminHandler(reconciliationUC, settlementUC, handler.SweepDefaults{
			Age:     cfg.SweepAge,
			Limit:   cfg.SweepBatch,
			Workers: cfg.SweepWorkers,
		}),
		HealthHandler:    handler.NewHealthHandler(pool, redis.Pinger{Client: redisClient}),
		Authenticate:     authMiddleware(cfg, logger),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		MetricsHandler:   promhttp.Handler(),
		Logger:           logger,
	})

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	outbox := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Logger:     logger,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatch,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	sweep := sweeper.New(sweeper.Config{
		Verifier:  settlementUC,
		Logger:    logger,
		Interval:  cfg.SweepInterval,
		Age:       cfg.SweepAge,
		BatchSize: cfg.SweepBatch,
		Workers:   cfg.SweepWorkers,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.HTTPPort).Str("provider", provider.Name()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return ignoreCancel(outbox.Start(gctx)) })
	g.Go(func() error { return ignoreCancel(sweep.Start(gctx)) })
	g.Go(func() error {
		cleanupLimiters(gctx, rateLimiter, limiterIdle, logger)
		return nil
	})

	return g.Wait()
}

// newPaymentProvider selects the gateway named by PAYMENT_PROVIDER.
func newPaymentProvider(cfg *config.Config) usecase.PaymentProvider {
	if cfg.PaymentProvider == "razorpay" {
		return razorpay.NewProvider(razorpay.Config{
			KeyID:       cfg.RazorpayKeyID,
			KeySecret:   cfg.RazorpayKeySecret,
			CheckoutURL: cfg.RazorpayCheckoutURL,
		})
	}

	return paystack.NewClient(paystack.Config{
		BaseURL:     cfg.PaystackBaseURL,
		SecretKey:   cfg.PaystackSecretKey,
		CallbackURL: cfg.PaystackCallbackURL,
		MaxRetries:  cfg.PaystackMaxRetries,
	}, &http.Client{Timeout: cfg.GatewayTimeout})
}

// newPublisher returns the Kafka publisher when brokers are configured and
// the log publisher otherwise, along with its close function.
func newPublisher(cfg *config.Config, logger zerolog.Logger) (eventpublisher.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return eventpublisher.NewLogPublisher(logger), func() {}
	}

	kp := eventpublisher.NewKafkaPublisher(eventpublisher.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
	return kp, func() {
		if err := kp.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close kafka writer")
		}
	}
}

func authMiddleware(cfg *config.Config, logger zerolog.Logger) func(http.Handler) http.Handler {
	if !cfg.AuthEnabled {
		logger.Warn().Msg("authentication disabled, trusting identity headers")
		return middleware.TrustedHeaders
	}
	return middleware.Authenticate(auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration))
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, idle time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.CleanupLimiters(idle); n > 0 {
				logger.Debug().Int("removed", n).Msg("dropped idle rate limiters")
			}
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
