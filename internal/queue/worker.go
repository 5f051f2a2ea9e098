package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pizza/internal/events"
	"github.com/noah-isme/backend-pizza/internal/order"
)

// KitchenWorker moves paid orders into preparation.
type KitchenWorker struct {
	Orders order.Repository
	Events order.Emitter
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewServeMux routes kitchen tickets to w.
func NewServeMux(w *KitchenWorker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeKitchenTicket, w.ProcessTask)
	return mux
}

// ProcessTask handles one kitchen ticket. Orders that already left the paid
// state are acknowledged without change; malformed tickets and unknown orders
// are not retried.
func (w *KitchenWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var ticket KitchenTicket
	if err := json.Unmarshal(t.Payload(), &ticket); err != nil {
		QueueProcessedTotal.WithLabelValues(TypeKitchenTicket, "malformed").Inc()
		return fmt.Errorf("queue: decode kitchen ticket: %v: %w", err, asynq.SkipRetry)
	}
	logger := w.Logger.With().Str("order_id", ticket.OrderID).Logger()

	current, err := w.Orders.Get(ctx, ticket.OrderID)
	if errors.Is(err, order.ErrNotFound) {
		QueueProcessedTotal.WithLabelValues(TypeKitchenTicket, "not_found").Inc()
		logger.Warn().Msg("kitchen_ticket_unknown_order")
		return fmt.Errorf("queue: order %s: %w", ticket.OrderID, asynq.SkipRetry)
	}
	if err != nil {
		QueueProcessedTotal.WithLabelValues(TypeKitchenTicket, "error").Inc()
		return err
	}
	if current.Status != order.StatusPaid {
		QueueProcessedTotal.WithLabelValues(TypeKitchenTicket, "skipped").Inc()
		logger.Info().Str("status", string(current.Status)).Msg("kitchen_ticket_skipped")
		return nil
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	updated, err := w.Orders.UpdateStatus(ctx, ticket.OrderID, order.StatusPreparing, now())
	if errors.Is(err, order.ErrInvalidTransition) {
		// Cancelled between the read and the update.
		QueueProcessedTotal.WithLabelValues(TypeKitchenTicket, "skipped").Inc()
		return nil
	}
	if err != nil {
		QueueProcessedTotal.WithLabelValues(TypeKitchenTicket, "error").Inc()
		return err
	}
	QueueProcessedTotal.WithLabelValues(TypeKitchenTicket, "ok").Inc()
	logger.Info().Int("items", ticket.Items).Msg("kitchen_ticket_accepted")

	if w.Events != nil {
		payload := map[string]any{"orderId": updated.ID, "userId": updated.UserID, "status": updated.Status}
		if _, err := w.Events.Emit(ctx, events.TopicOrderStatusChanged, updated.ID, payload); err != nil {
			logger.Warn().Err(err).Msg("order_event_failed")
		}
	}
	return nil
}
