// Package sweeper periodically re-verifies payments that the gateway never
// reported back on.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusmart/ledger/internal/infrastructure/logger"
	"github.com/campusmart/ledger/internal/usecase"
)

// PendingVerifier verifies stale pending payments in bulk.
type PendingVerifier interface {
	VerifyPending(ctx context.Context, olderThan time.Duration, limit, workers int) (*usecase.SweepResult, error)
}

// Config for Sweeper.
type Config struct {
	Verifier  PendingVerifier
	Logger    zerolog.Logger
	Interval  time.Duration
	Age       time.Duration // Minimum age of a pending payment before it is swept
	BatchSize int
	Workers   int
}

// Sweeper drives VerifyPending on a ticker.
type Sweeper struct {
	verifier  PendingVerifier
	logger    zerolog.Logger
	interval  time.Duration
	age       time.Duration
	batchSize int
	workers   int
}

// New creates a Sweeper.
func New(cfg Config) *Sweeper {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Age == 0 {
		cfg.Age = 10 * time.Minute
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}

	return &Sweeper{
		verifier:  cfg.Verifier,
		logger:    logger.Component(cfg.Logger, "sweeper"),
		interval:  cfg.Interval,
		age:       cfg.Age,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
	}
}

// Start runs sweeps until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("age", s.age).
		Int("workers", s.workers).
		Msg("payment sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("payment sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass and logs its outcome.
func (s *Sweeper) Sweep(ctx context.Context) *usecase.SweepResult {
	res, err := s.verifier.VerifyPending(ctx, s.age, s.batchSize, s.workers)
	if err != nil {
		s.logger.Error().Err(err).Msg("payment sweep failed")
		return res
	}

	if res.Checked > 0 {
		s.logger.Info().
			Int("checked", res.Checked).
			Int("completed", res.Completed).
			Int("failed", res.Failed).
			Int("pending", res.Pending).
			Int("errors", res.Errors).
			Msg("payment sweep finished")
	}

	return res
}
