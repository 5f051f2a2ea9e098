package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/backend-pizza/internal/money"
	"github.com/noah-isme/backend-pizza/internal/order"
)

var (
	// ErrDeclined is returned when the provider refuses the payment.
	ErrDeclined = errors.New("payment: declined")
	// ErrInvalidCard is returned for card details that fail local checks.
	// It wraps ErrDeclined.
	ErrInvalidCard = fmt.Errorf("%w: invalid card details", ErrDeclined)
)

// Method names reported in PaymentInfo.
const (
	MethodMock = "mock"
	MethodCard = "card"
)

// Card carries the card details entered at checkout.
type Card struct {
	Number string `json:"number" validate:"required"`
	Expiry string `json:"expiry" validate:"required"`
	CVV    string `json:"cvv" validate:"required"`
}

// Request describes one capture.
type Request struct {
	// Reference identifies the checkout attempt at the provider.
	Reference string
	Amount    money.Money
	Currency  string
	Method    string
	Card      *Card
}

// Provider captures payments and returns the confirmation record.
type Provider interface {
	Name() string
	Capture(ctx context.Context, req Request) (order.PaymentInfo, error)
}
