package queue_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/delivery"
	"github.com/noah-isme/backend-pizza/internal/events"
	"github.com/noah-isme/backend-pizza/internal/money"
	"github.com/noah-isme/backend-pizza/internal/order"
	"github.com/noah-isme/backend-pizza/internal/queue"
)

type fakeClient struct {
	tasks []*asynq.Task
	ids   map[string]bool
	err   error
}

func (c *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.ids == nil {
		c.ids = map[string]bool{}
	}
	for _, opt := range opts {
		if opt.Type() == asynq.TaskIDOpt {
			id := opt.Value().(string)
			if c.ids[id] {
				return nil, asynq.ErrTaskIDConflict
			}
			c.ids[id] = true
		}
	}
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func paidEvent(t *testing.T, orderID string) events.Event {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"orderId": orderID, "userId": "user-1", "items": 3, "total": "44.50"})
	require.NoError(t, err)
	return events.Event{ID: "ev-" + orderID, Topic: events.TopicOrderPaid, AggregateID: orderID, Payload: payload}
}

func TestEnqueuerCreatesOneTicketPerOrder(t *testing.T) {
	client := &fakeClient{}
	enq := queue.Enqueuer{Client: client, Queue: "kitchen", MaxRetry: 5}

	require.NoError(t, enq.Notify(context.Background(), paidEvent(t, "order-1")))
	require.NoError(t, enq.Notify(context.Background(), paidEvent(t, "order-1")))
	require.NoError(t, enq.Notify(context.Background(), events.Event{Topic: events.TopicOrderCreated, AggregateID: "order-2"}))

	require.Len(t, client.tasks, 1)
	require.Equal(t, queue.TypeKitchenTicket, client.tasks[0].Type())
	var ticket queue.KitchenTicket
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &ticket))
	require.Equal(t, queue.KitchenTicket{OrderID: "order-1", UserID: "user-1", Items: 3}, ticket)
}

func TestEnqueuerSurfacesClientErrors(t *testing.T) {
	enq := queue.Enqueuer{Client: &fakeClient{err: errors.New("redis down")}}
	err := enq.Notify(context.Background(), paidEvent(t, "order-1"))
	require.ErrorContains(t, err, "redis down")

	bad := events.Event{Topic: events.TopicOrderPaid, Payload: json.RawMessage(`[]`)}
	require.Error(t, queue.Enqueuer{Client: &fakeClient{}}.Notify(context.Background(), bad))
}

func TestEnqueuerWiredThroughBus(t *testing.T) {
	client := &fakeClient{}
	bus := &events.Bus{
		Store:     &events.MemoryStore{},
		Notifiers: []events.Notifier{events.Filter(queue.Enqueuer{Client: client}, events.TopicOrderPaid)},
	}
	_, err := bus.Emit(context.Background(), events.TopicOrderPaid, "order-9", map[string]any{"orderId": "order-9"})
	require.NoError(t, err)
	require.Len(t, client.tasks, 1)
}

func seedPaidOrder(t *testing.T, repo *order.MemoryRepository) order.Order {
	t.Helper()
	o := order.Order{
		UserID:          "user-1",
		Subtotal:        money.MustParse("10"),
		DeliveryFee:     money.Zero,
		Total:           money.MustParse("10"),
		DeliveryAddress: delivery.Address{Street: "s", City: "c", Country: "IT"},
		Status:          order.StatusPaid,
	}
	o, err := repo.Create(context.Background(), o)
	require.NoError(t, err)
	return o
}

func ticketTask(t *testing.T, orderID string) *asynq.Task {
	t.Helper()
	task, err := queue.NewKitchenTicketTask(queue.KitchenTicket{OrderID: orderID, Items: 1})
	require.NoError(t, err)
	return task
}

func TestKitchenWorkerMovesPaidOrderToPreparing(t *testing.T) {
	repo := order.NewMemoryRepository()
	store := &events.MemoryStore{}
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	w := &queue.KitchenWorker{Orders: repo, Events: &events.Bus{Store: store}, Logger: zerolog.Nop(), Now: func() time.Time { return now }}
	o := seedPaidOrder(t, repo)

	require.NoError(t, w.ProcessTask(context.Background(), ticketTask(t, o.ID)))
	got, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPreparing, got.Status)
	require.Equal(t, now, got.UpdatedAt)
	require.Len(t, store.Events(), 1)
	require.Equal(t, events.TopicOrderStatusChanged, store.Events()[0].Topic)

	// A redelivered ticket leaves the order alone.
	require.NoError(t, w.ProcessTask(context.Background(), ticketTask(t, o.ID)))
	require.Len(t, store.Events(), 1)
}

func TestKitchenWorkerSkipsCancelledAndUnknownOrders(t *testing.T) {
	repo := order.NewMemoryRepository()
	w := &queue.KitchenWorker{Orders: repo, Logger: zerolog.Nop()}
	o := seedPaidOrder(t, repo)
	_, err := repo.UpdateStatus(context.Background(), o.ID, order.StatusCancelled, time.Now())
	require.NoError(t, err)

	require.NoError(t, w.ProcessTask(context.Background(), ticketTask(t, o.ID)))
	got, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, got.Status)

	err = w.ProcessTask(context.Background(), ticketTask(t, "missing"))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeKitchenTicket, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewServeMuxRoutesKitchenTickets(t *testing.T) {
	repo := order.NewMemoryRepository()
	o := seedPaidOrder(t, repo)
	mux := queue.NewServeMux(&queue.KitchenWorker{Orders: repo, Logger: zerolog.Nop()})
	require.NoError(t, mux.ProcessTask(context.Background(), ticketTask(t, o.ID)))
	got, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPreparing, got.Status)
}

func TestLogLevelMapping(t *testing.T) {
	require.Equal(t, asynq.DebugLevel, queue.LogLevel(zerolog.TraceLevel))
	require.Equal(t, asynq.InfoLevel, queue.LogLevel(zerolog.InfoLevel))
	require.Equal(t, asynq.WarnLevel, queue.LogLevel(zerolog.WarnLevel))
	require.Equal(t, asynq.ErrorLevel, queue.LogLevel(zerolog.ErrorLevel))
}

func TestLoggerWritesMessages(t *testing.T) {
	var buf bytes.Buffer
	l := queue.Logger{L: zerolog.New(&buf)}
	l.Warn("lease ", "expired")
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), "lease expired")
}
