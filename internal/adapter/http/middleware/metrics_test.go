package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func resetHTTPMetrics() {
	httpRequestsTotal.Reset()
	httpRequestDuration.Reset()
	httpRequestsInFlight.Set(0)
}

func TestMetrics_LabelsByChiRoute(t *testing.T) {
	resetHTTPMetrics()

	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/api/v1/wallet/{userId}", func(w http.ResponseWriter, r *http.Request) {})
	r.Post("/api/v1/withdrawals/{id}/reject", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	for _, user := range []string{"u-1", "u-2", "u-3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/wallet/"+user, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/withdrawals/01XYZ/reject", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/wallet/{userId}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/withdrawals/{id}/reject", "409")))
	assert.Equal(t, 0.0, testutil.ToFloat64(httpRequestsInFlight))
}

func TestMetrics_FallsBackToNormalizedPath(t *testing.T) {
	resetHTTPMetrics()

	h := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/orders/o-17/pay", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/orders/{id}/pay", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(httpRequestDuration))
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/api/v1/wallet/u-1":                     "/api/v1/wallet/{id}",
		"/api/v1/wallet/fund":                    "/api/v1/wallet/fund",
		"/api/v1/wallet/topup":                   "/api/v1/wallet/topup",
		"/api/v1/withdrawals/01ABC/approve":      "/api/v1/withdrawals/{id}/approve",
		"/api/v1/orders/o-9/pay":                 "/api/v1/orders/{id}/pay",
		"/api/v1/transactions/user/u-1":          "/api/v1/transactions/user/{id}",
		"/api/v1/transactions/stats":             "/api/v1/transactions/stats",
		"/api/v1/admin/reconciliation/vendor-12": "/api/v1/admin/reconciliation/{id}",
		"/api/v1/payments/verify":                "/api/v1/payments/verify",
	}

	for input, want := range tests {
		assert.Equal(t, want, normalizePath(input), "path %q", input)
	}
}
