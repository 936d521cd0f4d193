package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistryRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegistry(registry)

	if m.WalletCredits == nil || m.PaymentsVerified == nil || m.WithdrawalsRequested == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestCountersAreIndependentPerRegistry(t *testing.T) {
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())

	a.WalletCredits.WithLabelValues("FUND").Inc()
	a.WalletCredits.WithLabelValues("FUND").Inc()

	if got := testutil.ToFloat64(a.WalletCredits.WithLabelValues("FUND")); got != 2 {
		t.Fatalf("expected 2 credits, got %v", got)
	}
	if got := testutil.ToFloat64(b.WalletCredits.WithLabelValues("FUND")); got != 0 {
		t.Fatalf("expected separate registry to be untouched, got %v", got)
	}
}
