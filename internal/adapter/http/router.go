package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/campusmart/ledger/internal/adapter/http/handler"
	"github.com/campusmart/ledger/internal/adapter/http/middleware"
	"github.com/campusmart/ledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	WalletHandler      *handler.WalletHandler
	WithdrawalHandler  *handler.WithdrawalHandler
	PaymentHandler     *handler.PaymentHandler
	TransactionHandler *handler.TransactionHandler
	AdminHandler       *handler.AdminHandler
	HealthHandler      *handler.HealthHandler

	// Authenticate puts the caller identity in the request context.
	Authenticate     func(http.Handler) http.Handler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	// RateLimiter, when set, throttles the payment routes per client IP.
	RateLimiter    *middleware.RateLimiter
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimiter != nil {
		throttle = cfg.RateLimiter.Limit
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.Authenticate)

		// Idempotency middleware for mutating requests, scoped to the caller
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Wallet
		r.Route("/wallet", func(r chi.Router) {
			r.Post("/fund", cfg.WalletHandler.Fund)
			r.Post("/checkout", cfg.WalletHandler.Checkout)
			r.With(throttle).Post("/topup", cfg.WalletHandler.TopUp)
			r.Get("/{userId}", cfg.WalletHandler.Get)
		})

		// Withdrawals
		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", cfg.WithdrawalHandler.Create)
			r.Get("/", cfg.WithdrawalHandler.List)
			r.Get("/{id}", cfg.WithdrawalHandler.Get)
			r.With(middleware.RequireAdmin).Put("/{id}/approve", cfg.WithdrawalHandler.Approve)
			r.With(middleware.RequireAdmin).Put("/{id}/reject", cfg.WithdrawalHandler.Reject)
		})

		// Payments
		r.Route("/payments", func(r chi.Router) {
			r.Use(throttle)
			r.Post("/initialize", cfg.PaymentHandler.Initialize)
			r.Post("/verify", cfg.PaymentHandler.Verify)
			r.Post("/refund", cfg.PaymentHandler.Refund)
		})
		r.With(throttle).Post("/orders/{orderId}/pay", cfg.PaymentHandler.PayOrder)

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", cfg.TransactionHandler.List)
			r.Get("/stats", cfg.TransactionHandler.Stats)
			r.Get("/user/{userId}", cfg.TransactionHandler.ListByUser)
			r.Get("/{id}", cfg.TransactionHandler.Get)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/reconciliation", cfg.AdminHandler.Report)
			r.Get("/reconciliation/{userId}", cfg.AdminHandler.ReconcileWallet)
			r.Post("/payments/sweep", cfg.AdminHandler.Sweep)
		})
	})

	return r
}
