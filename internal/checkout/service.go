package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-pizza/internal/cache"
	"github.com/noah-isme/backend-pizza/internal/cart"
	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/events"
	"github.com/noah-isme/backend-pizza/internal/lock"
	"github.com/noah-isme/backend-pizza/internal/obs"
	"github.com/noah-isme/backend-pizza/internal/order"
	"github.com/noah-isme/backend-pizza/internal/payment"
)

var (
	// ErrPersistOrder is returned when a captured order could not be stored.
	ErrPersistOrder = errors.New("checkout: persist order failed")
	// ErrUnsupportedMethod is returned for a payment method without provider.
	ErrUnsupportedMethod = errors.New("checkout: unsupported payment method")
)

// Input is one checkout request.
type Input struct {
	SessionID string
	Method    string
	Card      *payment.Card
}

// Service turns a cart into a paid order.
type Service struct {
	Carts     *cart.Registry
	Orders    order.Repository
	Providers map[string]payment.Provider
	Events    order.Emitter
	Locker    lock.Locker
	LockTTL   time.Duration
	Currency  string
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Place checks out the cart of in.SessionID for who. The cart is cleared only
// after payment was captured and the order stored; on any failure it is left
// as it was. Checkouts of one user are serialised through Locker.
func (s *Service) Place(ctx context.Context, who common.Identity, in Input) (order.Order, error) {
	if s == nil || s.Carts == nil || s.Orders == nil {
		return order.Order{}, errors.New("checkout service not configured")
	}
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Place")
	defer span.End()

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("checkout.result", result))
		obs.ObserveCheckout(result)
	}()

	if strings.TrimSpace(who.UserID) == "" {
		result = "rejected"
		return order.Order{}, order.ErrMissingIdentity
	}
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if method == "" {
		method = payment.MethodMock
	}
	provider, ok := s.Providers[method]
	if !ok {
		result = "rejected"
		return order.Order{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	span.SetAttributes(attribute.String("checkout.method", method), attribute.String("user.id", who.UserID))

	var placed order.Order
	run := func(ctx context.Context) error {
		return s.Carts.With(ctx, in.SessionID, func(store *cart.Store) error {
			o, err := s.place(ctx, store, who, provider, method, in.Card)
			if err != nil {
				return err
			}
			placed = o
			return nil
		})
	}
	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, cache.KeyCheckoutLock(who.UserID), s.LockTTL, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		result = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		return order.Order{}, err
	}
	result = "ok"
	span.SetAttributes(attribute.String("order.id", placed.ID))
	s.emit(ctx, placed)
	s.Logger.Info().
		Str("order_id", placed.ID).
		Str("user_id", placed.UserID).
		Str("total", placed.Total.StringFixed(2)).
		Int("items", placed.ItemCount()).
		Msg("checkout_completed")
	return placed, nil
}

// place runs with exclusive access to the cart.
func (s *Service) place(ctx context.Context, store *cart.Store, who common.Identity, provider payment.Provider, method string, card *payment.Card) (order.Order, error) {
	snap := store.Snapshot()
	o, err := order.Assemble(snap, snap.DeliveryAddress, who, s.now())
	if err != nil {
		return order.Order{}, err
	}
	info, err := provider.Capture(ctx, payment.Request{
		Reference: who.UserID + ":" + o.CreatedAt.Format(time.RFC3339Nano),
		Amount:    o.Total,
		Currency:  s.Currency,
		Method:    method,
		Card:      card,
	})
	if err != nil {
		return order.Order{}, err
	}
	o, err = o.AttachPayment(info)
	if err != nil {
		return order.Order{}, err
	}
	stored, err := s.Orders.Create(ctx, o)
	if err != nil {
		s.Logger.Error().Err(err).
			Str("user_id", who.UserID).
			Str("transaction_id", info.TransactionID).
			Str("amount", info.Amount.StringFixed(2)).
			Msg("checkout_persist_failed")
		return order.Order{}, fmt.Errorf("%w: %w", ErrPersistOrder, err)
	}
	store.Clear(ctx)
	return stored, nil
}

func (s *Service) emit(ctx context.Context, o order.Order) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId": o.ID,
		"userId":  o.UserID,
		"email":   o.UserEmail,
		"total":   o.Total.StringFixed(2),
		"items":   o.ItemCount(),
	}
	for _, topic := range []string{events.TopicOrderCreated, events.TopicOrderPaid} {
		if _, err := s.Events.Emit(ctx, topic, o.ID, payload); err != nil {
			s.Logger.Warn().Err(err).Str("order_id", o.ID).Str("topic", topic).Msg("order_event_failed")
		}
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func classify(err error) string {
	switch {
	case errors.Is(err, order.ErrEmptyCart), errors.Is(err, order.ErrMissingAddress), errors.Is(err, cart.ErrInvalidSession):
		return "rejected"
	case errors.Is(err, payment.ErrDeclined):
		return "declined"
	case errors.Is(err, lock.ErrNotAcquired):
		return "busy"
	case errors.Is(err, ErrPersistOrder):
		return "persist_failed"
	}
	return "error"
}
