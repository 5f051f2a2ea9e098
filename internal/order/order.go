package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-pizza/internal/cart"
	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/delivery"
	"github.com/noah-isme/backend-pizza/internal/money"
)

var (
	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("order: cannot checkout empty cart")
	// ErrMissingAddress is returned when no delivery address was resolved.
	ErrMissingAddress = errors.New("order: missing delivery address")
	// ErrMissingIdentity is returned when no user identity is available.
	ErrMissingIdentity = errors.New("order: missing user identity")
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order: not found")
)

// PaymentInfo is the confirmation record of a captured payment.
type PaymentInfo struct {
	Provider      string      `json:"provider"`
	Method        string      `json:"method"`
	TransactionID string      `json:"transactionId"`
	Amount        money.Money `json:"amount"`
	Currency      string      `json:"currency"`
	Status        string      `json:"status"`
	PaidAt        time.Time   `json:"paidAt"`
}

// Order is a frozen snapshot of a cart at checkout. Only Status, Payment and
// UpdatedAt change after creation.
type Order struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	UserName        string           `json:"userName"`
	UserEmail       string           `json:"userEmail"`
	Lines           []cart.Line      `json:"lines"`
	Subtotal        money.Money      `json:"subtotal"`
	DeliveryFee     money.Money      `json:"deliveryFee"`
	Total           money.Money      `json:"total"`
	DeliveryAddress delivery.Address `json:"deliveryAddress"`
	Status          Status           `json:"status"`
	Payment         *PaymentInfo     `json:"payment,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Assemble snapshots a cart into a pending order. Totals are copied from the
// snapshot, never recomputed.
func Assemble(snap cart.Snapshot, addr *delivery.Address, who common.Identity, now time.Time) (Order, error) {
	if len(snap.Lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	if addr == nil {
		return Order{}, ErrMissingAddress
	}
	if strings.TrimSpace(who.UserID) == "" {
		return Order{}, ErrMissingIdentity
	}
	sum := money.Zero
	for _, l := range snap.Lines {
		sum = sum.Add(l.Subtotal)
	}
	if !sum.Equal(snap.Subtotal) || !snap.Total.Equal(snap.Subtotal.Add(snap.DeliveryFee)) {
		panic(fmt.Sprintf("order: cart snapshot totals inconsistent: lines=%s subtotal=%s fee=%s total=%s",
			sum, snap.Subtotal, snap.DeliveryFee, snap.Total))
	}
	lines := make([]cart.Line, len(snap.Lines))
	copy(lines, snap.Lines)
	now = now.UTC()
	return Order{
		UserID:          who.UserID,
		UserName:        who.Name,
		UserEmail:       who.Email,
		Lines:           lines,
		Subtotal:        snap.Subtotal,
		DeliveryFee:     snap.DeliveryFee,
		Total:           snap.Total,
		DeliveryAddress: *addr,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// AttachPayment records a successful payment and marks the order paid.
func (o Order) AttachPayment(p PaymentInfo) (Order, error) {
	if err := Transition(o.Status, StatusPaid); err != nil {
		return o, err
	}
	o.Payment = &p
	o.Status = StatusPaid
	if p.PaidAt.After(o.UpdatedAt) {
		o.UpdatedAt = p.PaidAt
	}
	return o, nil
}

// ItemCount sums line quantities.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
