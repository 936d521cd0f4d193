package mocks

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

// ErrTxDone is returned when a finished MockTransaction is committed again.
var ErrTxDone = errors.New("mock transaction already finished")

// MockTransactionManager is a mock implementation of TransactionManager.
// Transactions it begins run one at a time, which gives the same isolation as
// row locks on a single wallet.
type MockTransactionManager struct {
	mu sync.Mutex

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	Begun      atomic.Int64
	Committed  atomic.Int64
	RolledBack atomic.Int64
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	m.Begun.Add(1)
	return &MockTransaction{manager: m}, nil
}

// MockTransaction is a mock implementation of Transaction. Writes made through
// the mock repositories are undone on Rollback.
type MockTransaction struct {
	manager *MockTransactionManager
	undo    []func()
	done    bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

// OnRollback registers fn to run if the transaction is rolled back.
func (m *MockTransaction) OnRollback(fn func()) {
	m.undo = append(m.undo, fn)
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.done {
		return ErrTxDone
	}
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.finish()
	if m.manager != nil {
		m.manager.Committed.Add(1)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.done {
		return nil
	}
	if m.RollbackFunc != nil {
		_ = m.RollbackFunc(ctx)
	}
	for i := len(m.undo) - 1; i >= 0; i-- {
		m.undo[i]()
	}
	m.finish()
	if m.manager != nil {
		m.manager.RolledBack.Add(1)
	}
	return nil
}

func (m *MockTransaction) finish() {
	m.done = true
	m.undo = nil
	if m.manager != nil {
		m.manager.mu.Unlock()
	}
}

func onRollback(tx usecase.Transaction, fn func()) {
	if t, ok := tx.(*MockTransaction); ok {
		t.OnRollback(fn)
	}
}

// MockWalletRepository is a mock implementation of WalletRepository.
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet

	GetByUserIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, userID string) (*domain.Wallet, error)
	UpdateBalanceFunc        func(ctx context.Context, tx usecase.Transaction, walletID string, balance decimal.Decimal, expectedVersion int64, updatedAt time.Time) error
	ListFunc                 func(ctx context.Context, limit, offset int) ([]*domain.Wallet, error)
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets: make(map[string]*domain.Wallet),
	}
}

// Seed stores a wallet directly.
func (m *MockWalletRepository) Seed(w *domain.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *w
	m.wallets[w.UserID] = &c
}

func (m *MockWalletRepository) Create(ctx context.Context, tx usecase.Transaction, wallet *domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallets[wallet.UserID]; ok {
		return nil
	}
	c := *wallet
	m.wallets[wallet.UserID] = &c
	onRollback(tx, func() {
		m.mu.Lock()
		delete(m.wallets, wallet.UserID)
		m.mu.Unlock()
	})
	return nil
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[userID]; ok {
		c := *w
		return &c, nil
	}
	return nil, domain.ErrWalletNotFound
}

func (m *MockWalletRepository) GetByUserIDForUpdate(ctx context.Context, tx usecase.Transaction, userID string) (*domain.Wallet, error) {
	if m.GetByUserIDForUpdateFunc != nil {
		return m.GetByUserIDForUpdateFunc(ctx, tx, userID)
	}
	return m.GetByUserID(ctx, userID)
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, walletID string, balance decimal.Decimal, expectedVersion int64, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, walletID, balance, expectedVersion, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if w.ID != walletID {
			continue
		}
		if w.Version != expectedVersion {
			return domain.ErrConcurrentUpdate
		}
		prev := *w
		w.Balance = balance
		w.Version++
		w.UpdatedAt = updatedAt
		onRollback(tx, func() {
			m.mu.Lock()
			*w = prev
			m.mu.Unlock()
		})
		return nil
	}
	return domain.ErrWalletNotFound
}

func (m *MockWalletRepository) List(ctx context.Context, limit, offset int) ([]*domain.Wallet, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wallets := make([]*domain.Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		c := *w
		wallets = append(wallets, &c)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].UserID < wallets[j].UserID })
	return page(wallets, limit, offset), nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu    sync.RWMutex
	txns  map[string]*domain.Transaction
	refs  map[string]string
	order []string

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	UpdateStatusFunc func(ctx context.Context, tx usecase.Transaction, update usecase.StatusUpdate) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		txns: make(map[string]*domain.Transaction),
		refs: make(map[string]string),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txns[txn.ID]; ok {
		return domain.ErrDuplicateOperation
	}
	ref := txn.ReferenceValue()
	if ref != "" {
		if _, ok := m.refs[ref]; ok {
			return domain.ErrDuplicateOperation
		}
		m.refs[ref] = txn.ID
	}
	c := *txn
	m.txns[txn.ID] = &c
	m.order = append(m.order, txn.ID)
	onRollback(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.txns, txn.ID)
		if ref != "" {
			delete(m.refs, ref)
		}
		for i, id := range m.order {
			if id == txn.ID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.txns[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	m.mu.RLock()
	id, ok := m.refs[reference]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) GetByReferenceForUpdate(ctx context.Context, tx usecase.Transaction, reference string) (*domain.Transaction, error) {
	return m.GetByReference(ctx, reference)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, update usecase.StatusUpdate) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, update)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[update.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if t.Status != update.From {
		return domain.ErrInvalidStateTransition
	}
	prev := *t
	t.Status = update.To
	t.UpdatedAt = update.At
	if update.To.IsTerminal() {
		at := update.At
		t.CompletedAt = &at
	}
	if update.Post {
		t.Posted = true
	}
	t.Note = joinNote(t.Note, update.Note)
	onRollback(tx, func() {
		m.mu.Lock()
		*t = prev
		m.mu.Unlock()
	})
	return nil
}

func (m *MockTransactionRepository) AppendNote(ctx context.Context, tx usecase.Transaction, id, note string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	prev := *t
	t.Note = joinNote(t.Note, note)
	t.UpdatedAt = at
	onRollback(tx, func() {
		m.mu.Lock()
		*t = prev
		m.mu.Unlock()
	})
	return nil
}

func (m *MockTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	matched := m.match(filter)
	return page(matched, filter.Limit, filter.Offset), nil
}

func (m *MockTransactionRepository) Stats(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionStats, error) {
	stats := &domain.TransactionStats{
		TotalAmount:  decimal.Zero,
		StatusCounts: make(map[domain.TransactionStatus]int64),
		TypeCounts:   make(map[domain.TransactionType]int64),
	}
	for _, t := range m.match(filter) {
		stats.Count++
		stats.TotalAmount = stats.TotalAmount.Add(t.Amount)
		stats.StatusCounts[t.Status]++
		stats.TypeCounts[t.Type]++
	}
	return stats, nil
}

func (m *MockTransactionRepository) SumsByUser(ctx context.Context, userID string) (domain.JournalSums, error) {
	sums := domain.JournalSums{
		Credits:   decimal.Zero,
		Debits:    decimal.Zero,
		Reserved:  decimal.Zero,
		Revenue:   decimal.Zero,
		Withdrawn: decimal.Zero,
	}
	for _, t := range m.match(domain.TransactionFilter{UserID: userID}) {
		switch {
		case t.Posted && t.Status == domain.TransactionStatusCompleted && t.Type.IsCredit():
			sums.Credits = sums.Credits.Add(t.Amount)
			if t.Type == domain.TransactionTypeFund || t.Type == domain.TransactionTypeDeposit {
				sums.Revenue = sums.Revenue.Add(t.Amount)
			}
		case t.Posted && t.Status == domain.TransactionStatusCompleted && t.Type.IsDebit():
			sums.Debits = sums.Debits.Add(t.Amount)
		case t.IsWithdrawalRequest() && t.Status == domain.TransactionStatusPending:
			sums.Reserved = sums.Reserved.Add(t.Amount)
		case t.IsWithdrawalRequest() && t.Status == domain.TransactionStatusApproved:
			sums.Withdrawn = sums.Withdrawn.Add(t.Amount)
		}
	}
	return sums, nil
}

func (m *MockTransactionRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range m.all() {
		if t.OrderID != nil && *t.OrderID == orderID {
			out = append(out, t)
		}
	}
	// Oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *MockTransactionRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range m.all() {
		if t.IsPaymentIntent() && t.Status == domain.TransactionStatusPending && t.CreatedAt.Before(before) {
			out = append(out, t)
		}
	}
	return page(out, limit, 0), nil
}

// All returns every stored entry, newest first.
func (m *MockTransactionRepository) All() []*domain.Transaction {
	return m.all()
}

func (m *MockTransactionRepository) all() []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Transaction, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		c := *m.txns[m.order[i]]
		out = append(out, &c)
	}
	return out
}

func (m *MockTransactionRepository) match(f domain.TransactionFilter) []*domain.Transaction {
	var out []*domain.Transaction
	for _, t := range m.all() {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.From != nil && t.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && t.CreatedAt.After(*f.To) {
			continue
		}
		if f.WithdrawalRequestsOnly && !t.IsWithdrawalRequest() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	n := len(m.events)
	onRollback(tx, func() {
		m.mu.Lock()
		m.events = m.events[:n-1]
		m.mu.Unlock()
	})
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			out = append(out, e)
		}
	}
	return page(out, limit, 0), nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if !e.Published || e.PublishedAt.After(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// Events returns the recorded event types in order.
func (m *MockOutboxRepository) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.EventType)
	}
	return types
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	n := len(m.logs)
	onRollback(tx, func() {
		m.mu.Lock()
		m.logs = m.logs[:n-1]
		m.mu.Unlock()
	})
	return nil
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditLog
	for _, l := range m.logs {
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.ResourceID != "" && l.ResourceID != filter.ResourceID {
			continue
		}
		out = append(out, l)
	}
	return page(out, filter.Limit, filter.Offset), nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	counter atomic.Int64
	Prefix  string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "id-"}
}

func (m *MockIDGenerator) Generate() string {
	return m.Prefix + strconv.FormatInt(m.counter.Add(1), 10)
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration

	Deletes atomic.Int64
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

// TTL returns the ttl of the last Set for key.
func (m *MockCache) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes.Add(1)
	delete(m.data, key)
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func joinNote(existing, note string) string {
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	default:
		return existing + "\n" + note
	}
}
