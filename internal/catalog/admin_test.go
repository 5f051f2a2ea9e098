package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/catalog"
	"github.com/noah-isme/backend-pizza/internal/money"
)

func (f *fakeQueries) UpsertIngredient(_ context.Context, ing catalog.Ingredient) (catalog.Ingredient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.ingredients {
		if f.ingredients[i].ID == ing.ID {
			f.ingredients[i] = ing
			return ing, nil
		}
	}
	f.ingredients = append(f.ingredients, ing)
	return ing, nil
}

func (f *fakeQueries) UpsertPizza(_ context.Context, p catalog.Pizza) (catalog.Pizza, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.pizzas {
		if f.pizzas[i].ID == p.ID {
			f.pizzas[i] = p
			return p, nil
		}
	}
	f.pizzas = append(f.pizzas, p)
	return p, nil
}

func (f *fakeQueries) UpsertDrink(_ context.Context, d catalog.Drink) (catalog.Drink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drinks = append(f.drinks, d)
	return d, nil
}

func (f *fakeQueries) SetAvailable(_ context.Context, kind catalog.ItemKind, id string, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == catalog.KindPizzas {
		for i := range f.pizzas {
			if f.pizzas[i].ID == id {
				f.pizzas[i].Available = available
				return nil
			}
		}
	}
	return catalog.ErrNotFound
}

func newAdminFixture(t *testing.T) (*fakeQueries, *catalog.Service, *catalog.Admin) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := catalog.NewCache(client, time.Minute)
	q := newFakeQueries()
	svc, err := catalog.NewService(catalog.ServiceConfig{Queries: q, Cache: c})
	require.NoError(t, err)
	return q, svc, &catalog.Admin{Writer: q, Cache: c}
}

func TestAdminSaveInvalidatesListings(t *testing.T) {
	q, svc, admin := newAdminFixture(t)
	ctx := context.Background()

	pizzas, err := svc.Pizzas(ctx, false)
	require.NoError(t, err)
	require.Len(t, pizzas, 2)

	_, err = admin.SavePizza(ctx, catalog.Pizza{ID: "pepperoni", Name: "Pepperoni", BasePrice: money.MustParse("10.00"), Available: true})
	require.NoError(t, err)

	pizzas, err = svc.Pizzas(ctx, false)
	require.NoError(t, err)
	require.Len(t, pizzas, 3)
	require.Equal(t, 2, q.count("pizzas"))
}

func TestAdminWithdrawHidesItem(t *testing.T) {
	_, svc, admin := newAdminFixture(t)
	ctx := context.Background()

	_, err := svc.Pizza(ctx, "hawaiian")
	require.NoError(t, err)
	require.NoError(t, admin.Withdraw(ctx, catalog.KindPizzas, "hawaiian"))

	_, err = svc.Pizza(ctx, "hawaiian")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	err = admin.Withdraw(ctx, catalog.KindPizzas, "calzone")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAdminRejectsBadInput(t *testing.T) {
	_, _, admin := newAdminFixture(t)
	ctx := context.Background()

	_, err := admin.SaveDrink(ctx, catalog.Drink{ID: "Bad Id", Name: "x", Price: money.MustParse("1.00")})
	require.Error(t, err)

	_, err = admin.SaveDrink(ctx, catalog.Drink{ID: "water", Name: "Water", Price: money.MustParse("-1.00")})
	require.Error(t, err)

	_, err = admin.SaveIngredient(ctx, catalog.Ingredient{ID: "chocolate", Name: "Chocolate", Category: "dessert"})
	require.Error(t, err)
}

func TestAdminHandler(t *testing.T) {
	_, svc, admin := newAdminFixture(t)
	h := &catalog.AdminHandler{Admin: admin}
	r := chi.NewRouter()
	r.Put("/admin/catalog/ingredients/{id}", h.PutIngredient)
	r.Put("/admin/catalog/pizzas/{id}", h.PutPizza)
	r.Put("/admin/catalog/drinks/{id}", h.PutDrink)
	r.Delete("/admin/catalog/{kind}/{id}", h.Delete)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPut, "/admin/catalog/ingredients/basil", `{"name":"Basil","price":"0.75","category":"vegetable"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ing, err := svc.Ingredient(context.Background(), "basil")
	require.NoError(t, err)
	require.True(t, money.MustParse("0.75").Equal(ing.Price))

	rec = do(http.MethodPut, "/admin/catalog/pizzas/veggie", `{"name":"Veggie","basePrice":11.5,"ingredients":["basil"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(http.MethodPut, "/admin/catalog/drinks/water", `{"name":"Water","price":"1.00"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, "size is required")

	rec = do(http.MethodPut, "/admin/catalog/ingredients/ham", `{"name":"Ham","price":"2.00","category":"dessert"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(http.MethodDelete, "/admin/catalog/pizzas/veggie", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(http.MethodDelete, "/admin/catalog/sides/fries", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
