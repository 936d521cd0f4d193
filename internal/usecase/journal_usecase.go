package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/campusmart/ledger/internal/domain"
)

// JournalUseCase is the transaction journal: the append-only record of every
// money movement and workflow step.
type JournalUseCase struct {
	txRepo TransactionRepository
	idGen  IDGenerator
}

// NewJournalUseCase creates a new JournalUseCase.
func NewJournalUseCase(txRepo TransactionRepository, idGen IDGenerator) *JournalUseCase {
	return &JournalUseCase{
		txRepo: txRepo,
		idGen:  idGen,
	}
}

// Append records a new entry inside tx.
func (uc *JournalUseCase) Append(ctx context.Context, tx Transaction, txn *domain.Transaction) error {
	if !txn.Type.IsValid() {
		return fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidRequest, txn.Type)
	}
	if !txn.Status.IsValid() {
		return fmt.Errorf("%w: unknown transaction status %q", domain.ErrInvalidRequest, txn.Status)
	}
	if !txn.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}

	if txn.ID == "" {
		txn.ID = uc.idGen.Generate()
	}

	now := time.Now().UTC()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = txn.CreatedAt
	if txn.Status.IsTerminal() && txn.CompletedAt == nil {
		completed := txn.CreatedAt
		txn.CompletedAt = &completed
	}

	return uc.txRepo.Create(ctx, tx, txn)
}

// Transition moves a locked PENDING entry to a terminal status and returns the updated entry.
func (uc *JournalUseCase) Transition(ctx context.Context, tx Transaction, txn *domain.Transaction, next domain.TransactionStatus, note string) (*domain.Transaction, error) {
	return uc.transition(ctx, tx, txn, next, note, false)
}

// UpdateStatus locks the entry and moves it from PENDING to next.
func (uc *JournalUseCase) UpdateStatus(ctx context.Context, tx Transaction, id string, next domain.TransactionStatus, note string) (*domain.Transaction, error) {
	txn, err := uc.txRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return uc.transition(ctx, tx, txn, next, note, false)
}

func (uc *JournalUseCase) transition(ctx context.Context, tx Transaction, txn *domain.Transaction, next domain.TransactionStatus, note string, post bool) (*domain.Transaction, error) {
	if !txn.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, txn.Status, next)
	}

	now := time.Now().UTC()
	if err := uc.txRepo.UpdateStatus(ctx, tx, StatusUpdate{
		ID:   txn.ID,
		From: txn.Status,
		To:   next,
		Post: post,
		Note: note,
		At:   now,
	}); err != nil {
		return nil, err
	}

	updated := *txn
	updated.Status = next
	updated.UpdatedAt = now
	updated.CompletedAt = &now
	updated.Note = joinNote(txn.Note, note)
	if post {
		updated.Posted = true
	}

	return &updated, nil
}

// AppendNote adds an audit note to an entry in any status.
func (uc *JournalUseCase) AppendNote(ctx context.Context, tx Transaction, id, note string) error {
	if note == "" {
		return nil
	}
	return uc.txRepo.AppendNote(ctx, tx, id, note, time.Now().UTC())
}

// Get retrieves an entry by ID.
func (uc *JournalUseCase) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txRepo.GetByID(ctx, id)
}

// ListByUser lists a user's entries, newest first.
func (uc *JournalUseCase) ListByUser(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	filter.UserID = userID
	return uc.List(ctx, filter)
}

// List lists entries matching filter, newest first.
func (uc *JournalUseCase) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.txRepo.List(ctx, filter)
}

// AggregateStats counts and sums entries matching filter.
func (uc *JournalUseCase) AggregateStats(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionStats, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return uc.txRepo.Stats(ctx, filter)
}

func validateFilter(filter domain.TransactionFilter) error {
	if filter.Type != "" && !filter.Type.IsValid() {
		return fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidRequest, filter.Type)
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return fmt.Errorf("%w: unknown transaction status %q", domain.ErrInvalidRequest, filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return fmt.Errorf("%w: date range is reversed", domain.ErrInvalidRequest)
	}
	return nil
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
