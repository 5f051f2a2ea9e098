package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-pizza/internal/catalog"
	"github.com/noah-isme/backend-pizza/internal/money"
	"github.com/noah-isme/backend-pizza/internal/pricing"
)

// Kind discriminates the payload carried by a Line.
type Kind string

const (
	KindPizza       Kind = "predefined-pizza"
	KindCustomPizza Kind = "custom-pizza"
	KindDrink       Kind = "drink"
)

// Valid reports whether k is a known line kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPizza, KindCustomPizza, KindDrink:
		return true
	}
	return false
}

var (
	// ErrInvalidQuantity is returned when a line is created with quantity < 1.
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
	// ErrInvalidLine is returned when a decoded line breaks the line invariants.
	ErrInvalidLine = errors.New("cart: invalid line")
)

// InvalidCustomPizzaError carries the validation failures of a custom pizza.
type InvalidCustomPizzaError struct {
	Errors []string
}

func (e *InvalidCustomPizzaError) Error() string {
	return "cart: invalid custom pizza: " + strings.Join(e.Errors, "; ")
}

// Line is one priced entry of the cart. Exactly one of Pizza, Custom or Drink
// is set, matching Kind. Size is only set for predefined pizzas.
type Line struct {
	ID        string
	Kind      Kind
	Pizza     *catalog.Pizza
	Custom    *pricing.CustomPizza
	Drink     *catalog.Drink
	Size      *catalog.PizzaSize
	Quantity  int
	UnitPrice money.Money
	Subtotal  money.Money
}

// NewPizzaLine prices a predefined pizza at size.
func NewPizzaLine(p catalog.Pizza, size catalog.PizzaSize, qty int) (Line, error) {
	if qty < 1 {
		return Line{}, ErrInvalidQuantity
	}
	unit := pricing.PredefinedUnitPrice(p, size)
	p.Ingredients = append([]string(nil), p.Ingredients...)
	return Line{
		Kind:      KindPizza,
		Pizza:     &p,
		Size:      &size,
		Quantity:  qty,
		UnitPrice: unit,
		Subtotal:  money.Times(unit, qty),
	}, nil
}

// NewCustomPizzaLine validates spec against rules and freezes a copy of it
// into a line.
func NewCustomPizzaLine(spec pricing.CustomPizza, rules pricing.Rules, qty int) (Line, error) {
	if qty < 1 {
		return Line{}, ErrInvalidQuantity
	}
	if res := rules.Validate(spec); !res.Valid {
		return Line{}, &InvalidCustomPizzaError{Errors: res.Errors}
	}
	unit, err := pricing.CustomPizzaPrice(spec)
	if err != nil {
		return Line{}, err
	}
	frozen := spec.Clone()
	frozen.TotalPrice = unit
	return Line{
		Kind:      KindCustomPizza,
		Custom:    &frozen,
		Quantity:  qty,
		UnitPrice: unit,
		Subtotal:  money.Times(unit, qty),
	}, nil
}

// NewDrinkLine prices a drink.
func NewDrinkLine(d catalog.Drink, qty int) (Line, error) {
	if qty < 1 {
		return Line{}, ErrInvalidQuantity
	}
	return Line{
		Kind:      KindDrink,
		Drink:     &d,
		Quantity:  qty,
		UnitPrice: d.Price,
		Subtotal:  money.Times(d.Price, qty),
	}, nil
}

// ItemID returns the catalog id of the underlying item. Custom pizzas have no
// catalog identity and return "".
func (l Line) ItemID() string {
	switch l.Kind {
	case KindPizza:
		if l.Pizza != nil {
			return l.Pizza.ID
		}
	case KindDrink:
		if l.Drink != nil {
			return l.Drink.ID
		}
	}
	return ""
}

// Name returns a display name for the line.
func (l Line) Name() string {
	switch l.Kind {
	case KindPizza:
		if l.Pizza != nil {
			return l.Pizza.Name
		}
	case KindDrink:
		if l.Drink != nil {
			return l.Drink.Name
		}
	case KindCustomPizza:
		if l.Custom != nil {
			return pricing.Describe(*l.Custom)
		}
	}
	return ""
}

// mergeKey identifies lines that add into each other. Custom pizzas never
// merge and get an empty key.
func (l Line) mergeKey() string {
	switch l.Kind {
	case KindPizza:
		size := ""
		if l.Size != nil {
			size = l.Size.ID
		}
		return string(l.Kind) + "|" + l.ItemID() + "|" + size
	case KindDrink:
		return string(l.Kind) + "|" + l.ItemID()
	}
	return ""
}

func (l Line) withQuantity(qty int) Line {
	l.Quantity = qty
	l.Subtotal = money.Times(l.UnitPrice, qty)
	return l
}

// check reports the first invariant the line breaks.
func (l Line) check() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidLine)
	}
	if l.Quantity < 1 {
		return fmt.Errorf("%w: line %s quantity %d", ErrInvalidLine, l.ID, l.Quantity)
	}
	if l.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: line %s negative unit price", ErrInvalidLine, l.ID)
	}
	if !l.Subtotal.Equal(money.Times(l.UnitPrice, l.Quantity)) {
		return fmt.Errorf("%w: line %s subtotal %s != %s x %d", ErrInvalidLine, l.ID, l.Subtotal, l.UnitPrice, l.Quantity)
	}
	ok := false
	switch l.Kind {
	case KindPizza:
		ok = l.Pizza != nil && l.Size != nil && l.Custom == nil && l.Drink == nil
	case KindCustomPizza:
		ok = l.Custom != nil && l.Pizza == nil && l.Drink == nil && l.Size == nil
	case KindDrink:
		ok = l.Drink != nil && l.Pizza == nil && l.Custom == nil && l.Size == nil
	}
	if !ok {
		return fmt.Errorf("%w: line %s payload does not match kind %q", ErrInvalidLine, l.ID, l.Kind)
	}
	return nil
}

func (l Line) clone() Line {
	out := l
	if l.Pizza != nil {
		p := *l.Pizza
		p.Ingredients = append([]string(nil), l.Pizza.Ingredients...)
		out.Pizza = &p
	}
	if l.Custom != nil {
		c := l.Custom.Clone()
		out.Custom = &c
	}
	if l.Drink != nil {
		d := *l.Drink
		out.Drink = &d
	}
	if l.Size != nil {
		s := *l.Size
		out.Size = &s
	}
	return out
}

type lineJSON struct {
	ID        string             `json:"id"`
	Kind      Kind               `json:"type"`
	Item      json.RawMessage    `json:"item"`
	Quantity  int                `json:"quantity"`
	Size      *catalog.PizzaSize `json:"size,omitempty"`
	UnitPrice money.Money        `json:"unitPrice"`
	Subtotal  money.Money        `json:"subtotal"`
}

// MarshalJSON encodes the line with its payload under "item".
func (l Line) MarshalJSON() ([]byte, error) {
	var payload any
	switch l.Kind {
	case KindPizza:
		payload = l.Pizza
	case KindCustomPizza:
		payload = l.Custom
	case KindDrink:
		payload = l.Drink
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidLine, l.Kind)
	}
	item, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(lineJSON{
		ID:        l.ID,
		Kind:      l.Kind,
		Item:      item,
		Quantity:  l.Quantity,
		Size:      l.Size,
		UnitPrice: l.UnitPrice,
		Subtotal:  l.Subtotal,
	})
}

// UnmarshalJSON decodes "item" according to "type".
func (l *Line) UnmarshalJSON(data []byte) error {
	var raw lineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Line{
		ID:        raw.ID,
		Kind:      raw.Kind,
		Size:      raw.Size,
		Quantity:  raw.Quantity,
		UnitPrice: raw.UnitPrice,
		Subtotal:  raw.Subtotal,
	}
	if len(raw.Item) == 0 || string(raw.Item) == "null" {
		return fmt.Errorf("%w: line %s has no item", ErrInvalidLine, raw.ID)
	}
	switch raw.Kind {
	case KindPizza:
		out.Pizza = new(catalog.Pizza)
		if err := json.Unmarshal(raw.Item, out.Pizza); err != nil {
			return err
		}
	case KindCustomPizza:
		out.Custom = new(pricing.CustomPizza)
		if err := json.Unmarshal(raw.Item, out.Custom); err != nil {
			return err
		}
	case KindDrink:
		out.Drink = new(catalog.Drink)
		if err := json.Unmarshal(raw.Item, out.Drink); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidLine, raw.Kind)
	}
	*l = out
	return nil
}
