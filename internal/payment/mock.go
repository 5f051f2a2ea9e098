package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pizza/internal/order"
)

// Mock approves every capture unless Decline is set. Used in development.
type Mock struct {
	Decline bool
	Now     func() time.Time
}

// Name implements Provider.
func (m Mock) Name() string { return "mock" }

// Capture implements Provider.
func (m Mock) Capture(ctx context.Context, req Request) (order.PaymentInfo, error) {
	if err := ctx.Err(); err != nil {
		return order.PaymentInfo{}, err
	}
	if m.Decline {
		return order.PaymentInfo{}, fmt.Errorf("%w: mock provider configured to decline", ErrDeclined)
	}
	return confirmation(req, MethodMock, "MOCK-"+uuid.NewString(), m.Now), nil
}

func confirmation(req Request, method, txID string, now func() time.Time) order.PaymentInfo {
	if now == nil {
		now = time.Now
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	return order.PaymentInfo{
		Provider:      method,
		Method:        method,
		TransactionID: txID,
		Amount:        req.Amount,
		Currency:      currency,
		Status:        "completed",
		PaidAt:        now().UTC(),
	}
}
