package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pizza/internal/order"
)

// CardProcessor checks card details locally and simulates a processor call.
type CardProcessor struct {
	// Latency simulates the processor round trip.
	Latency time.Duration
	Now     func() time.Time
}

// Name implements Provider.
func (p CardProcessor) Name() string { return "card" }

// Capture implements Provider.
func (p CardProcessor) Capture(ctx context.Context, req Request) (order.PaymentInfo, error) {
	if req.Card == nil {
		return order.PaymentInfo{}, fmt.Errorf("%w: card details missing", ErrInvalidCard)
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	if err := CheckCard(*req.Card, now()); err != nil {
		return order.PaymentInfo{}, err
	}
	if p.Latency > 0 {
		timer := time.NewTimer(p.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return order.PaymentInfo{}, ctx.Err()
		case <-timer.C:
		}
	}
	info := confirmation(req, MethodCard, "TXN-"+uuid.NewString(), now)
	info.Provider = "card:" + strings.ToLower(strings.ReplaceAll(CardBrand(req.Card.Number), " ", "-"))
	return info, nil
}

// CheckCard validates number (Luhn, 13 to 19 digits), expiry (MM/YY, not
// past) and CVV (3 or 4 digits).
func CheckCard(c Card, now time.Time) error {
	if !ValidCardNumber(c.Number) {
		return fmt.Errorf("%w: card number", ErrInvalidCard)
	}
	if !validExpiry(c.Expiry, now) {
		return fmt.Errorf("%w: expiry", ErrInvalidCard)
	}
	cvv := strings.TrimSpace(c.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || !digits(cvv) {
		return fmt.Errorf("%w: cvv", ErrInvalidCard)
	}
	return nil
}

// ValidCardNumber applies the Luhn checksum after stripping spaces and dashes.
func ValidCardNumber(number string) bool {
	n := cleanNumber(number)
	if len(n) < 13 || len(n) > 19 || !digits(n) {
		return false
	}
	sum := 0
	double := false
	for i := len(n) - 1; i >= 0; i-- {
		d := int(n[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// CardBrand guesses the card network from the number prefix.
func CardBrand(number string) string {
	n := cleanNumber(number)
	switch {
	case strings.HasPrefix(n, "4"):
		return "Visa"
	case len(n) >= 2 && n[0] == '5' && n[1] >= '1' && n[1] <= '5':
		return "Mastercard"
	case strings.HasPrefix(n, "34"), strings.HasPrefix(n, "37"):
		return "American Express"
	case strings.HasPrefix(n, "6011"), strings.HasPrefix(n, "65"):
		return "Discover"
	}
	return "Unknown"
}

// MaskCardNumber keeps the last four digits.
func MaskCardNumber(number string) string {
	n := cleanNumber(number)
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

func validExpiry(expiry string, now time.Time) bool {
	month, year, ok := strings.Cut(strings.TrimSpace(expiry), "/")
	if !ok {
		return false
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return false
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 0 {
		return false
	}
	if y < 100 {
		y += 2000
	}
	// Cards are valid through the last day of the expiry month.
	end := time.Date(y, time.Month(m)+1, 1, 0, 0, 0, 0, time.UTC)
	return now.UTC().Before(end)
}

func cleanNumber(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
