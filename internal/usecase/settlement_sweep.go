package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusmart/ledger/internal/domain"
)

// SweepResult summarises one pass over stale pending payments.
type SweepResult struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	Errors    int `json:"errors"`
}

// VerifyPending re-verifies payment intents left PENDING for longer than
// olderThan, at most limit of them and workers at a time. Errors from single
// references are counted, not returned, so one broken payment cannot stall the sweep.
func (uc *SettlementUseCase) VerifyPending(ctx context.Context, olderThan time.Duration, limit, workers int) (*SweepResult, error) {
	if workers < 1 {
		workers = 1
	}

	stale, err := uc.ListStalePayments(ctx, olderThan, limit)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		res = &SweepResult{Checked: len(stale)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, intent := range stale {
		reference := intent.ReferenceValue()
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			outcome, verr := uc.Verify(gctx, reference)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case verr != nil:
				res.Errors++
			case outcome.Status == domain.TransactionStatusCompleted:
				res.Completed++
			case outcome.Status == domain.TransactionStatusFailed:
				res.Failed++
			default:
				res.Pending++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsSwept.WithLabelValues("completed").Add(float64(res.Completed))
		uc.metrics.PaymentsSwept.WithLabelValues("failed").Add(float64(res.Failed))
		uc.metrics.PaymentsSwept.WithLabelValues("pending").Add(float64(res.Pending))
		uc.metrics.PaymentsSwept.WithLabelValues("error").Add(float64(res.Errors))
	}

	return res, nil
}
