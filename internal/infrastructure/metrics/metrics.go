package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Wallet metrics
	WalletCredits      *prometheus.CounterVec
	WalletDebits       *prometheus.CounterVec
	WalletAmount       *prometheus.HistogramVec
	WalletDuration     prometheus.Histogram
	InsufficientFunds  prometheus.Counter
	DuplicateRejected  prometheus.Counter
	WalletCacheLookups *prometheus.CounterVec

	// Withdrawal metrics
	WithdrawalsRequested prometheus.Counter
	WithdrawalsApproved  prometheus.Counter
	WithdrawalsRejected  prometheus.Counter

	// Settlement metrics
	PaymentsInitialized *prometheus.CounterVec
	PaymentsVerified    *prometheus.CounterVec
	PaymentsRefunded    *prometheus.CounterVec
	GatewayErrors       *prometheus.CounterVec
	GatewayDuration     *prometheus.HistogramVec
	OrderCompensations  prometheus.Counter

	// Reconciliation metrics
	ReconciliationRuns          prometheus.Counter
	ReconciliationDiscrepancies prometheus.Gauge

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter

	// Pending payment sweeper metrics
	PaymentsSwept *prometheus.CounterVec
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Wallet metrics
		WalletCredits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_wallet_credits_total",
				Help: "Total number of wallet credits by transaction type",
			},
			[]string{"type"},
		),
		WalletDebits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_wallet_debits_total",
				Help: "Total number of wallet debits by transaction type",
			},
			[]string{"type"},
		),
		WalletAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_wallet_amount",
				Help:    "Amounts moved through wallets",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"direction"},
		),
		WalletDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_wallet_operation_duration_seconds",
			Help:    "Duration of wallet credit/debit transactions",
			Buckets: prometheus.DefBuckets,
		}),
		InsufficientFunds: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_insufficient_funds_total",
			Help: "Debits rejected for insufficient funds",
		}),
		DuplicateRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_duplicate_operations_total",
			Help: "Operations rejected because their reference was already used",
		}),
		WalletCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_wallet_cache_lookups_total",
				Help: "Wallet summary cache lookups by result",
			},
			[]string{"result"},
		),

		// Withdrawal metrics
		WithdrawalsRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_withdrawals_requested_total",
			Help: "Total number of withdrawal requests",
		}),
		WithdrawalsApproved: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_withdrawals_approved_total",
			Help: "Total number of approved withdrawals",
		}),
		WithdrawalsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_withdrawals_rejected_total",
			Help: "Total number of rejected withdrawals",
		}),

		// Settlement metrics
		PaymentsInitialized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_payments_initialized_total",
				Help: "Payments initialized by purpose",
			},
			[]string{"purpose"},
		),
		PaymentsVerified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_payments_verified_total",
				Help: "Payment verifications by outcome",
			},
			[]string{"result"},
		),
		PaymentsRefunded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_payments_refunded_total",
				Help: "Refunds by channel",
			},
			[]string{"channel"},
		),
		GatewayErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_gateway_errors_total",
				Help: "Payment provider failures by operation",
			},
			[]string{"operation"},
		),
		GatewayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_gateway_duration_seconds",
				Help:    "Payment provider call duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OrderCompensations: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_order_compensations_total",
			Help: "Order payments reversed because the order could not be marked paid",
		}),

		// Reconciliation metrics
		ReconciliationRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reconciliation_runs_total",
			Help: "Total number of reconciliation reports generated",
		}),
		ReconciliationDiscrepancies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_reconciliation_discrepancies",
			Help: "Wallets whose balance disagreed with the journal in the last report",
		}),

		// Outbox metrics
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_outbox_published_total",
			Help: "Outbox events published",
		}),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_outbox_failures_total",
			Help: "Outbox events that failed to publish",
		}),

		// Pending payment sweeper metrics
		PaymentsSwept: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_payments_swept_total",
				Help: "Stale pending payments re-verified by the sweeper",
			},
			[]string{"outcome"},
		),
	}
}
