package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/infrastructure/metrics"
	"github.com/campusmart/ledger/internal/usecase"
	"github.com/campusmart/ledger/internal/usecase/mocks"
)

type env struct {
	txMgr      *mocks.MockTransactionManager
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	outbox     *mocks.MockOutboxRepository
	audit      *mocks.MockAuditRepository
	cache      *mocks.MockCache
	idGen      *mocks.MockIDGenerator
	provider   *mocks.MockPaymentProvider
	orders     *mocks.MockOrderService
	metrics    *metrics.Metrics

	journal        *usecase.JournalUseCase
	wallet         *usecase.WalletUseCase
	withdrawals    *usecase.WithdrawalUseCase
	settlement     *usecase.SettlementUseCase
	orderPayments  *usecase.OrderSettlementUseCase
	reconciliation *usecase.ReconciliationUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()

	ctrl := gomock.NewController(t)
	e := &env{
		txMgr:      mocks.NewMockTransactionManager(),
		walletRepo: mocks.NewMockWalletRepository(),
		txRepo:     mocks.NewMockTransactionRepository(),
		outbox:     mocks.NewMockOutboxRepository(),
		audit:      mocks.NewMockAuditRepository(),
		cache:      mocks.NewMockCache(),
		idGen:      mocks.NewMockIDGenerator(),
		provider:   mocks.NewMockPaymentProvider(ctrl),
		orders:     mocks.NewMockOrderService(ctrl),
		metrics:    metrics.NewWithRegistry(prometheus.NewRegistry()),
	}
	e.provider.EXPECT().Name().Return("paystack").AnyTimes()

	e.journal = usecase.NewJournalUseCase(e.txRepo, e.idGen)
	e.wallet = usecase.NewWalletUseCase(e.txMgr, e.walletRepo, e.txRepo, e.journal, e.outbox, e.cache, nil, e.idGen, e.metrics)
	e.withdrawals = usecase.NewWithdrawalUseCase(e.txMgr, e.wallet, e.journal, e.txRepo, e.outbox, e.audit, nil, e.idGen, e.metrics)
	e.settlement = usecase.NewSettlementUseCase(e.txMgr, e.wallet, e.journal, e.txRepo, e.outbox, e.audit, e.provider, e.orders, nil, e.idGen, e.metrics, usecase.SettlementConfig{})
	e.orderPayments = usecase.NewOrderSettlementUseCase(e.wallet, e.orders, e.audit, e.idGen, e.metrics)
	e.reconciliation = usecase.NewReconciliationUseCase(e.walletRepo, e.txRepo, e.metrics)

	return e
}

func (e *env) fund(t *testing.T, userID, amount string) {
	t.Helper()
	_, err := e.wallet.Fund(context.Background(), userID, dec(amount), "")
	require.NoError(t, err)
}

func (e *env) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	b, err := e.wallet.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

// requireReconciled checks that the stored balance equals the net of posted entries.
func (e *env) requireReconciled(t *testing.T, userID string) {
	t.Helper()
	res, err := e.reconciliation.ReconcileWallet(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, res.IsReconciled, "recorded %s, calculated %s", res.RecordedBalance, res.CalculatedBalance)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func pendingOrder(id, customer, total string) *domain.Order {
	return &domain.Order{ID: id, CustomerID: customer, Total: dec(total), Status: domain.OrderStatusPending}
}

// orderBook backs the order service mock with mutable orders.
type orderBook struct {
	mu          sync.Mutex
	orders      map[string]*domain.Order
	paidRefs    map[string][]string
	cancelled   map[string]string
	markPaidErr error
}

func (e *env) withOrders(orders ...*domain.Order) *orderBook {
	b := &orderBook{
		orders:    make(map[string]*domain.Order),
		paidRefs:  make(map[string][]string),
		cancelled: make(map[string]string),
	}
	for _, o := range orders {
		b.orders[o.ID] = o
	}

	e.orders.EXPECT().GetOrder(gomock.Any(), gomock.Any()).DoAndReturn(b.get).AnyTimes()
	e.orders.EXPECT().MarkPaid(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(b.markPaid).AnyTimes()
	e.orders.EXPECT().Cancel(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(b.cancel).AnyTimes()
	return b
}

func (b *orderBook) get(_ context.Context, id string) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (b *orderBook) markPaid(_ context.Context, id, reference string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.markPaidErr != nil {
		return b.markPaidErr
	}
	b.orders[id].Status = domain.OrderStatusPaid
	b.paidRefs[id] = append(b.paidRefs[id], reference)
	return nil
}

func (b *orderBook) cancel(_ context.Context, id, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[id].Status = domain.OrderStatusCancelled
	b.cancelled[id] = reason
	return nil
}

func (b *orderBook) status(id string) domain.OrderStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orders[id].Status
}

func (b *orderBook) markPaidCalls(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.paidRefs[id])
}
