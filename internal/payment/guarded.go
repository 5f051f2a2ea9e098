package payment

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-pizza/internal/obs"
	"github.com/noah-isme/backend-pizza/internal/order"
	"github.com/noah-isme/backend-pizza/internal/resilience"
)

// Guarded decorates a Provider with a circuit breaker, a trace span and
// capture metrics. Declines do not count as breaker failures.
type Guarded struct {
	Provider Provider
	Breaker  *resilience.Breaker
}

// Name implements Provider.
func (g Guarded) Name() string { return g.Provider.Name() }

// Capture implements Provider.
func (g Guarded) Capture(ctx context.Context, req Request) (order.PaymentInfo, error) {
	ctx, span := otel.Tracer("payment.Provider").Start(ctx, "Payment.Capture")
	defer span.End()

	start := time.Now()
	name := g.Provider.Name()
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.provider", name),
			attribute.String("payment.reference", req.Reference),
			attribute.String("payment.amount", req.Amount.StringFixed(2)),
			attribute.Float64("payment.capture.duration_ms", obs.DurationMillis(time.Since(start))),
			attribute.String("payment.capture.result", result),
		)
		obs.ObservePaymentCapture(name, result)
	}()

	var info order.PaymentInfo
	capture := func(ctx context.Context) error {
		var err error
		info, err = g.Provider.Capture(ctx, req)
		return err
	}
	var err error
	if g.Breaker != nil {
		err = g.Breaker.Execute(ctx, capture, func(err error) bool { return errors.Is(err, ErrDeclined) })
	} else {
		err = capture(ctx)
	}
	switch {
	case err == nil:
		result = "captured"
	case errors.Is(err, ErrDeclined):
		result = "declined"
	case errors.Is(err, resilience.ErrOpenCircuit):
		result = "circuit_open"
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		return order.PaymentInfo{}, err
	}
	return info, nil
}
