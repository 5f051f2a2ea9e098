package pricing

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-pizza/internal/catalog"
	"github.com/noah-isme/backend-pizza/internal/money"
)

// DefaultMaxToppings caps the number of toppings on a custom pizza.
const DefaultMaxToppings = 10

// CustomPizza is a build-your-own pizza. TotalPrice is derived and is
// recomputed by every builder method once both size and base are chosen.
type CustomPizza struct {
	Size       *catalog.PizzaSize   `json:"size,omitempty"`
	Base       *catalog.Ingredient  `json:"base,omitempty"`
	Cheese     *catalog.Ingredient  `json:"cheese,omitempty"`
	Sauce      *catalog.Ingredient  `json:"sauce,omitempty"`
	Toppings   []catalog.Ingredient `json:"toppings"`
	TotalPrice money.Money          `json:"totalPrice"`
}

// SetSize selects the size.
func (c *CustomPizza) SetSize(size catalog.PizzaSize) {
	c.Size = &size
	c.recompute()
}

// SetBase selects the base ingredient.
func (c *CustomPizza) SetBase(base catalog.Ingredient) {
	c.Base = &base
	c.recompute()
}

// SetCheese selects the cheese, or clears it when nil.
func (c *CustomPizza) SetCheese(cheese *catalog.Ingredient) {
	c.Cheese = cloneIngredient(cheese)
	c.recompute()
}

// SetSauce selects the sauce, or clears it when nil.
func (c *CustomPizza) SetSauce(sauce *catalog.Ingredient) {
	c.Sauce = cloneIngredient(sauce)
	c.recompute()
}

// ToggleTopping adds the topping when absent and removes it when present.
// It reports whether the topping is selected afterwards.
func (c *CustomPizza) ToggleTopping(t catalog.Ingredient) bool {
	if c.HasTopping(t.ID) {
		c.RemoveTopping(t.ID)
		return false
	}
	c.AddTopping(t)
	return true
}

// AddTopping adds t unless a topping with the same id is already present.
func (c *CustomPizza) AddTopping(t catalog.Ingredient) {
	if c.HasTopping(t.ID) {
		return
	}
	c.Toppings = append(c.Toppings, t)
	c.recompute()
}

// RemoveTopping removes the topping with the given id.
func (c *CustomPizza) RemoveTopping(id string) {
	kept := c.Toppings[:0]
	for _, t := range c.Toppings {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.Toppings = kept
	c.recompute()
}

// HasTopping reports whether a topping with id is selected.
func (c *CustomPizza) HasTopping(id string) bool {
	for _, t := range c.Toppings {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Reset clears every selection.
func (c *CustomPizza) Reset() {
	*c = CustomPizza{}
}

// Clone returns a deep copy that shares no memory with c.
func (c CustomPizza) Clone() CustomPizza {
	out := CustomPizza{
		Base:       cloneIngredient(c.Base),
		Cheese:     cloneIngredient(c.Cheese),
		Sauce:      cloneIngredient(c.Sauce),
		Toppings:   append([]catalog.Ingredient(nil), c.Toppings...),
		TotalPrice: c.TotalPrice,
	}
	if c.Size != nil {
		size := *c.Size
		out.Size = &size
	}
	return out
}

func (c *CustomPizza) recompute() {
	price, err := CustomPizzaPrice(*c)
	if err != nil {
		c.TotalPrice = money.Zero
		return
	}
	c.TotalPrice = price
}

func cloneIngredient(in *catalog.Ingredient) *catalog.Ingredient {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

// Validation is the outcome of checking a custom pizza.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Rules holds the configurable limits applied to custom pizzas.
type Rules struct {
	MaxToppings int
}

// Validate evaluates every check and accumulates all failures.
func (r Rules) Validate(spec CustomPizza) Validation {
	limit := r.MaxToppings
	if limit <= 0 {
		limit = DefaultMaxToppings
	}
	errs := []string{}
	if spec.Size == nil {
		errs = append(errs, "select a size")
	}
	if spec.Base == nil {
		errs = append(errs, "select a base")
	}
	if spec.Sauce == nil {
		errs = append(errs, "select a sauce")
	}
	if len(spec.Toppings) < 1 {
		errs = append(errs, "add at least one ingredient")
	}
	if len(spec.Toppings) > limit {
		errs = append(errs, fmt.Sprintf("maximum %d ingredients", limit))
	}
	return Validation{Valid: len(errs) == 0, Errors: errs}
}

// ValidateCustomPizza validates spec with the default topping cap.
func ValidateCustomPizza(spec CustomPizza) Validation {
	return Rules{MaxToppings: DefaultMaxToppings}.Validate(spec)
}

// Describe renders a one-line summary such as
// "Medium pizza | Base: Classic dough | Sauce: Tomato | Toppings: Ham, Onion".
func Describe(spec CustomPizza) string {
	parts := make([]string, 0, 5)
	if spec.Size != nil {
		parts = append(parts, spec.Size.Name+" pizza")
	}
	if spec.Base != nil {
		parts = append(parts, "Base: "+spec.Base.Name)
	}
	if spec.Sauce != nil {
		parts = append(parts, "Sauce: "+spec.Sauce.Name)
	}
	if spec.Cheese != nil {
		parts = append(parts, "Cheese: "+spec.Cheese.Name)
	}
	if len(spec.Toppings) > 0 {
		names := make([]string, 0, len(spec.Toppings))
		for _, t := range spec.Toppings {
			names = append(names, t.Name)
		}
		parts = append(parts, "Toppings: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, " | ")
}
