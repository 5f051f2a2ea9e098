package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/cart"
	"github.com/noah-isme/backend-pizza/internal/catalog"
	"github.com/noah-isme/backend-pizza/internal/money"
	"github.com/noah-isme/backend-pizza/internal/pricing"
)

var (
	margherita = catalog.Pizza{ID: "margherita", Name: "Margherita", BasePrice: money.MustParse("12.50"), Category: "classic", Ingredients: []string{"mozzarella", "tomato"}, Available: true}
	pepperoni  = catalog.Pizza{ID: "pepperoni", Name: "Pepperoni", BasePrice: money.MustParse("14.00"), Category: "classic", Available: true}
	cola       = catalog.Drink{ID: "cola", Name: "Cola", Price: money.MustParse("2.50"), Size: "350ml", Available: true}

	classicBase = catalog.Ingredient{ID: "classic", Name: "Classic", Price: money.MustParse("3.00"), Category: catalog.CategoryBase, Available: true}
	mozzarella  = catalog.Ingredient{ID: "mozzarella", Name: "Mozzarella", Price: money.MustParse("2.50"), Category: catalog.CategoryCheese, Available: true}
	tomato      = catalog.Ingredient{ID: "tomato", Name: "Tomato", Price: money.MustParse("1.00"), Category: catalog.CategorySauce, Available: true}
	ham         = catalog.Ingredient{ID: "ham", Name: "Ham", Price: money.MustParse("1.20"), Category: catalog.CategoryMeat, Available: true}
	onion       = catalog.Ingredient{ID: "onion", Name: "Onion", Price: money.MustParse("0.80"), Category: catalog.CategoryVegetable, Available: true}
)

func size(t *testing.T, id string) catalog.PizzaSize {
	t.Helper()
	s, ok := catalog.SizeByID(id)
	require.True(t, ok)
	return s
}

func pizzaLine(t *testing.T, p catalog.Pizza, sizeID string, qty int) cart.Line {
	t.Helper()
	line, err := cart.NewPizzaLine(p, size(t, sizeID), qty)
	require.NoError(t, err)
	return line
}

func drinkLine(t *testing.T, qty int) cart.Line {
	t.Helper()
	line, err := cart.NewDrinkLine(cola, qty)
	require.NoError(t, err)
	return line
}

func customSpec(t *testing.T) pricing.CustomPizza {
	t.Helper()
	var spec pricing.CustomPizza
	spec.SetSize(size(t, "medium"))
	spec.SetBase(classicBase)
	spec.SetSauce(&tomato)
	spec.AddTopping(ham)
	spec.AddTopping(onion)
	return spec
}

func customLine(t *testing.T, qty int) cart.Line {
	t.Helper()
	line, err := cart.NewCustomPizzaLine(customSpec(t), pricing.Rules{}, qty)
	require.NoError(t, err)
	return line
}
