package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-pizza/internal/events"
)

// TypeKitchenTicket is the asynq task type of a kitchen ticket.
const TypeKitchenTicket = "kitchen:ticket"

// KitchenTicket asks the kitchen to start preparing a paid order.
type KitchenTicket struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Items   int    `json:"items"`
}

// NewKitchenTicketTask encodes t as an asynq task.
func NewKitchenTicketTask(t KitchenTicket) (*asynq.Task, error) {
	if strings.TrimSpace(t.OrderID) == "" {
		return nil, errors.New("queue: kitchen ticket without order id")
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeKitchenTicket, payload), nil
}

// TaskEnqueuer is the subset of *asynq.Client used here.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer turns order.paid events into kitchen tickets. It implements
// events.Notifier.
type Enqueuer struct {
	Client   TaskEnqueuer
	Queue    string
	MaxRetry int
	// Retention keeps completed tasks, which also keeps their ids reserved.
	Retention time.Duration
}

// Notify implements events.Notifier. Other topics are ignored. The order id
// is the task id so a replayed event does not produce a second ticket.
func (e Enqueuer) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicOrderPaid {
		return nil
	}
	if e.Client == nil {
		return errors.New("queue: asynq client not configured")
	}
	var ticket KitchenTicket
	if err := json.Unmarshal(ev.Payload, &ticket); err != nil {
		return fmt.Errorf("queue: decode %s payload: %w", ev.Topic, err)
	}
	if ticket.OrderID == "" {
		ticket.OrderID = ev.AggregateID
	}
	task, err := NewKitchenTicketTask(ticket)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.TaskID(ticket.OrderID)}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	if e.Retention > 0 {
		opts = append(opts, asynq.Retention(e.Retention))
	}
	_, err = e.Client.EnqueueContext(ctx, task, opts...)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		QueueEnqueuedTotal.WithLabelValues(TypeKitchenTicket, "duplicate").Inc()
		return nil
	case err != nil:
		QueueEnqueuedTotal.WithLabelValues(TypeKitchenTicket, "error").Inc()
		return fmt.Errorf("queue: enqueue kitchen ticket: %w", err)
	}
	QueueEnqueuedTotal.WithLabelValues(TypeKitchenTicket, "ok").Inc()
	return nil
}
