package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/obs"
	"github.com/noah-isme/backend-pizza/internal/order"
	"github.com/noah-isme/backend-pizza/internal/resilience"
)

type flakyProvider struct {
	err   error
	calls int
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) Capture(context.Context, Request) (order.PaymentInfo, error) {
	p.calls++
	if p.err != nil {
		return order.PaymentInfo{}, p.err
	}
	return order.PaymentInfo{TransactionID: "ok"}, nil
}

func TestGuardedDeclinesDoNotTripBreaker(t *testing.T) {
	provider := &flakyProvider{err: ErrDeclined}
	g := Guarded{Provider: provider, Breaker: resilience.NewBreaker(resilience.BreakerOptions{Target: "payment", MinRequests: 2, OpenFor: time.Minute})}

	for i := 0; i < 5; i++ {
		_, err := g.Capture(context.Background(), Request{})
		require.ErrorIs(t, err, ErrDeclined)
	}
	require.Equal(t, resilience.Closed, g.Breaker.State())
	require.Equal(t, 5, provider.calls)
}

func TestGuardedOpensOnProviderFailures(t *testing.T) {
	provider := &flakyProvider{err: errors.New("gateway timeout")}
	g := Guarded{Provider: provider, Breaker: resilience.NewBreaker(resilience.BreakerOptions{Target: "payment", MinRequests: 2, OpenFor: time.Minute})}

	for i := 0; i < 2; i++ {
		_, err := g.Capture(context.Background(), Request{})
		require.Error(t, err)
	}
	require.Equal(t, resilience.Open, g.Breaker.State())

	_, err := g.Capture(context.Background(), Request{})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 2, provider.calls)
}

func TestGuardedRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("pizza_test", reg)

	g := Guarded{Provider: &flakyProvider{}}
	info, err := g.Capture(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, "ok", info.TransactionID)

	g = Guarded{Provider: &flakyProvider{err: ErrDeclined}}
	_, err = g.Capture(context.Background(), Request{})
	require.ErrorIs(t, err, ErrDeclined)

	require.Equal(t, float64(1), testutil.ToFloat64(obs.PaymentCaptureTotal.WithLabelValues("flaky", "captured")))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.PaymentCaptureTotal.WithLabelValues("flaky", "declined")))
}
