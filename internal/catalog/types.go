package catalog

import (
	"github.com/noah-isme/backend-pizza/internal/money"
)

// IngredientCategory classifies ingredients for the pizza builder.
type IngredientCategory string

const (
	CategoryBase      IngredientCategory = "base"
	CategoryCheese    IngredientCategory = "cheese"
	CategoryMeat      IngredientCategory = "meat"
	CategoryVegetable IngredientCategory = "vegetable"
	CategorySauce     IngredientCategory = "sauce"
	CategoryExtra     IngredientCategory = "extra"
)

// Valid reports whether c is one of the known ingredient categories.
func (c IngredientCategory) Valid() bool {
	switch c {
	case CategoryBase, CategoryCheese, CategoryMeat, CategoryVegetable, CategorySauce, CategoryExtra:
		return true
	}
	return false
}

// Ingredient is immutable reference data owned by the catalog.
type Ingredient struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Price     money.Money        `json:"price"`
	Category  IngredientCategory `json:"category"`
	ImageURL  string             `json:"imageUrl,omitempty"`
	Available bool               `json:"available"`
}

// PizzaSize scales a pizza price by PriceMultiplier.
type PizzaSize struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	PriceMultiplier float64 `json:"priceMultiplier"`
	Slices          int     `json:"slices"`
}

// Pizza is a predefined menu pizza. Ingredients are descriptive only and do
// not participate in pricing.
type Pizza struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	BasePrice   money.Money `json:"basePrice"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Category    string      `json:"category"`
	Ingredients []string    `json:"ingredients"`
	Popular     bool        `json:"popular,omitempty"`
	Available   bool        `json:"available"`
}

// Drink is a menu drink sold at a fixed unit price.
type Drink struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       money.Money `json:"price"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Size        string      `json:"size"`
	Available   bool        `json:"available"`
}

// Menu is a point-in-time view of the available catalog.
type Menu struct {
	Ingredients []Ingredient `json:"ingredients"`
	Pizzas      []Pizza      `json:"pizzas"`
	Drinks      []Drink      `json:"drinks"`
}

var standardSizes = []PizzaSize{
	{ID: "small", Name: "Small", PriceMultiplier: 1.0, Slices: 6},
	{ID: "medium", Name: "Medium", PriceMultiplier: 1.5, Slices: 8},
	{ID: "large", Name: "Large", PriceMultiplier: 2.0, Slices: 10},
	{ID: "xl", Name: "Extra Large", PriceMultiplier: 2.5, Slices: 12},
}

// StandardSizes returns a copy of the sizes offered by the store.
func StandardSizes() []PizzaSize {
	out := make([]PizzaSize, len(standardSizes))
	copy(out, standardSizes)
	return out
}

// SizeByID looks up a standard size.
func SizeByID(id string) (PizzaSize, bool) {
	for _, s := range standardSizes {
		if s.ID == id {
			return s, true
		}
	}
	return PizzaSize{}, false
}
