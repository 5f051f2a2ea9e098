package tracking

import (
	"strings"

	"github.com/noah-isme/backend-pizza/internal/order"
)

// MapExternalToStatus converts courier status labels into order statuses.
// The boolean is false for labels that do not move the order.
func MapExternalToStatus(external string) (order.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(external)) {
	case "picked", "pickup", "picked_up", "in_transit", "in-transit", "out_for_delivery", "out-for-delivery":
		return order.StatusInDelivery, true
	case "delivered", "dropped_off":
		return order.StatusDelivered, true
	}
	return "", false
}
