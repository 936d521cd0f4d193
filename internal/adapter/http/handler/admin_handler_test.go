package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmart/ledger/internal/usecase"
)

type adminStub struct {
	reportErr error
	age       time.Duration
	limit     int
	workers   int
}

func (s *adminStub) ReconcileWallet(ctx context.Context, userID string) (*usecase.ReconciliationResult, error) {
	return &usecase.ReconciliationResult{
		UserID:            userID,
		RecordedBalance:   dec("50"),
		CalculatedBalance: dec("50"),
		Difference:        dec("0"),
		IsReconciled:      true,
	}, nil
}

func (s *adminStub) GenerateReport(ctx context.Context) (*usecase.ReconciliationReport, error) {
	if s.reportErr != nil {
		return nil, s.reportErr
	}
	return &usecase.ReconciliationReport{TotalWallets: 3, ReconciledWallets: 3, Discrepancies: []*usecase.ReconciliationResult{}}, nil
}

func (s *adminStub) VerifyPending(ctx context.Context, olderThan time.Duration, limit, workers int) (*usecase.SweepResult, error) {
	s.age, s.limit, s.workers = olderThan, limit, workers
	return &usecase.SweepResult{Checked: 2, Completed: 1, Pending: 1}, nil
}

func TestAdminHandler_Reconciliation(t *testing.T) {
	stub := &adminStub{}
	h := NewAdminHandler(stub, stub, SweepDefaults{})

	rec := httptest.NewRecorder()
	h.Report(rec, newRequest(http.MethodGet, "/api/v1/admin/reconciliation", "", admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalWallets":3`)

	rec = httptest.NewRecorder()
	h.ReconcileWallet(rec, newRequest(http.MethodGet, "/api/v1/admin/reconciliation/buyer-1", "", admin, "userId", "buyer-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isReconciled":true`)

	stub.reportErr = errors.New("connection refused")
	rec = httptest.NewRecorder()
	h.Report(rec, newRequest(http.MethodGet, "/api/v1/admin/reconciliation", "", admin))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAdminHandler_Sweep(t *testing.T) {
	stub := &adminStub{}
	h := NewAdminHandler(stub, stub, SweepDefaults{Age: 10 * time.Minute, Limit: 100, Workers: 4})

	rec := httptest.NewRecorder()
	h.Sweep(rec, newRequest(http.MethodPost, "/api/v1/admin/payments/sweep", "", admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10*time.Minute, stub.age)
	assert.Equal(t, 100, stub.limit)
	assert.Equal(t, 4, stub.workers)
	assert.JSONEq(t, `{"checked":2,"completed":1,"failed":0,"pending":1,"errors":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Sweep(rec, newRequest(http.MethodPost, "/api/v1/admin/payments/sweep", `{"olderThanSeconds":60,"limit":5}`, admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Minute, stub.age)
	assert.Equal(t, 5, stub.limit)

	rec = httptest.NewRecorder()
	h.Sweep(rec, newRequest(http.MethodPost, "/api/v1/admin/payments/sweep", `{"limit":-1}`, admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
