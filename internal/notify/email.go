package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-pizza/internal/events"
)

// EmailNotifier sends transactional emails for order events. It implements
// events.Notifier; events without a recipient are skipped.
type EmailNotifier struct {
	Mail         Mailer
	Enabled      bool
	StoreName    string
	TopicToggles map[string]bool
}

// Notify implements events.Notifier.
func (n EmailNotifier) Notify(_ context.Context, ev events.Event) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[ev.Topic]; ok && !enabled {
			return nil
		}
	}
	payload := map[string]any{}
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := extractRecipient(payload)
	if to == "" {
		return nil
	}
	return n.Mail.Send(to, n.subjectFor(ev.Topic, payload), bodyFor(ev.Topic, payload, ev.OccurredAt))
}

func extractRecipient(payload map[string]any) string {
	for _, key := range []string{"email", "recipient", "userEmail"} {
		if s, ok := payload[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func (n EmailNotifier) subjectFor(topic string, payload map[string]any) string {
	store := n.StoreName
	if store == "" {
		store = "Pizza"
	}
	switch topic {
	case events.TopicOrderPaid:
		return store + ": payment received, your order is in"
	case events.TopicOrderCancelled:
		return store + ": your order was cancelled"
	case events.TopicOrderStatusChanged:
		if status, ok := payload["status"].(string); ok && status != "" {
			return fmt.Sprintf("%s: your order is %s", store, status)
		}
		return store + ": order update"
	default:
		return fmt.Sprintf("%s: %s", store, topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event %s at %s.", topic, occurred.UTC().Format(time.RFC3339))
	if orderID, ok := payload["orderId"].(string); ok && orderID != "" {
		fmt.Fprintf(&b, "\nOrder: %s", orderID)
	}
	if total, ok := payload["total"].(string); ok && total != "" {
		fmt.Fprintf(&b, "\nTotal: %s", total)
	}
	if items, ok := payload["items"].(float64); ok && items > 0 {
		fmt.Fprintf(&b, "\nItems: %d", int(items))
	}
	return b.String()
}
