package pricing

import (
	"errors"

	"github.com/noah-isme/backend-pizza/internal/catalog"
	"github.com/noah-isme/backend-pizza/internal/money"
)

// ErrIncompleteSpec is returned when a custom pizza is priced before both its
// size and base are chosen.
var ErrIncompleteSpec = errors.New("pricing: custom pizza requires a size and a base")

// PredefinedUnitPrice returns basePrice × size multiplier rounded to cents.
// Inputs are assumed validated and non-negative.
func PredefinedUnitPrice(pizza catalog.Pizza, size catalog.PizzaSize) money.Money {
	return money.Round2(pizza.BasePrice.Mul(money.FromFloat(size.PriceMultiplier)))
}

// CustomPizzaPrice sums base, cheese, sauce and toppings, applies the size
// multiplier, and rounds once at the end.
func CustomPizzaPrice(spec CustomPizza) (money.Money, error) {
	if spec.Size == nil || spec.Base == nil {
		return money.Zero, ErrIncompleteSpec
	}
	sum := spec.Base.Price
	if spec.Cheese != nil {
		sum = sum.Add(spec.Cheese.Price)
	}
	if spec.Sauce != nil {
		sum = sum.Add(spec.Sauce.Price)
	}
	for _, t := range spec.Toppings {
		sum = sum.Add(t.Price)
	}
	return money.Round2(sum.Mul(money.FromFloat(spec.Size.PriceMultiplier))), nil
}

// Item describes a priced cart entry used for totals.
type Item struct {
	Qty      int
	Subtotal money.Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal    money.Money `json:"subtotal"`
	DeliveryFee money.Money `json:"deliveryFee"`
	Total       money.Money `json:"total"`
	ItemCount   int         `json:"itemCount"`
}

// Compute totals line subtotals and adds the delivery fee. Line subtotals are
// already exact, so no rounding happens here.
func Compute(items []Item, deliveryFee money.Money) Summary {
	subtotal := money.Zero
	count := 0
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(it.Subtotal)
		count += it.Qty
	}
	return Summary{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Total:       subtotal.Add(deliveryFee),
		ItemCount:   count,
	}
}
