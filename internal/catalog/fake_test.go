package catalog_test

import (
	"context"
	"sync"

	"github.com/noah-isme/backend-pizza/internal/catalog"
	"github.com/noah-isme/backend-pizza/internal/money"
)

type fakeQueries struct {
	mu          sync.Mutex
	ingredients []catalog.Ingredient
	pizzas      []catalog.Pizza
	drinks      []catalog.Drink
	calls       map[string]int
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		ingredients: []catalog.Ingredient{
			{ID: "dough", Name: "Classic dough", Price: money.MustParse("3.00"), Category: catalog.CategoryBase, Available: true},
			{ID: "tomato", Name: "Tomato sauce", Price: money.MustParse("1.00"), Category: catalog.CategorySauce, Available: true},
			{ID: "truffle", Name: "Truffle", Price: money.MustParse("9.00"), Category: catalog.CategoryExtra, Available: false},
		},
		pizzas: []catalog.Pizza{
			{ID: "margherita", Name: "Margherita", BasePrice: money.MustParse("8.00"), Popular: true, Available: true},
			{ID: "hawaiian", Name: "Hawaiian", BasePrice: money.MustParse("9.50"), Available: true},
		},
		drinks: []catalog.Drink{
			{ID: "cola", Name: "Cola", Price: money.MustParse("2.00"), Size: "350ml", Available: true},
		},
		calls: map[string]int{},
	}
}

func (f *fakeQueries) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeQueries) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeQueries) ListIngredients(_ context.Context, flt catalog.Filter) ([]catalog.Ingredient, error) {
	f.hit("ingredients")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []catalog.Ingredient{}
	for _, ing := range f.ingredients {
		if !ing.Available {
			continue
		}
		if flt.Category != "" && ing.Category != flt.Category {
			continue
		}
		out = append(out, ing)
	}
	return out, nil
}

func (f *fakeQueries) ListPizzas(_ context.Context, flt catalog.Filter) ([]catalog.Pizza, error) {
	f.hit("pizzas")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []catalog.Pizza{}
	for _, p := range f.pizzas {
		if p.Available && (!flt.PopularOnly || p.Popular) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeQueries) ListDrinks(context.Context) ([]catalog.Drink, error) {
	f.hit("drinks")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Drink(nil), f.drinks...), nil
}

func (f *fakeQueries) GetIngredient(_ context.Context, id string) (catalog.Ingredient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ing := range f.ingredients {
		if ing.ID == id {
			return ing, nil
		}
	}
	return catalog.Ingredient{}, catalog.ErrNotFound
}

func (f *fakeQueries) GetPizza(_ context.Context, id string) (catalog.Pizza, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pizzas {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Pizza{}, catalog.ErrNotFound
}

func (f *fakeQueries) GetDrink(_ context.Context, id string) (catalog.Drink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.drinks {
		if d.ID == id {
			return d, nil
		}
	}
	return catalog.Drink{}, catalog.ErrNotFound
}

func (f *fakeQueries) addDrink(d catalog.Drink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drinks = append(f.drinks, d)
}
