package events

import "context"

// Topic constants for domain events emitted by the storefront.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderPaid          = "order.paid"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderCancelled     = "order.cancelled"
)

// DefaultTopics returns the topics notifiers may subscribe to.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderPaid,
		TopicOrderStatusChanged,
		TopicOrderCancelled,
	}
}

// Filter wraps n so it only sees events whose topic is in topics.
func Filter(n Notifier, topics ...string) Notifier {
	allowed := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		allowed[t] = struct{}{}
	}
	return NotifierFunc(func(ctx context.Context, ev Event) error {
		if _, ok := allowed[ev.Topic]; !ok {
			return nil
		}
		return n.Notify(ctx, ev)
	})
}
