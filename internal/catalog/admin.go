package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pizza/internal/cache"
	"github.com/noah-isme/backend-pizza/internal/common"
)

// ItemKind names a catalog collection in admin routes.
type ItemKind string

const (
	KindIngredients ItemKind = "ingredients"
	KindPizzas      ItemKind = "pizzas"
	KindDrinks      ItemKind = "drinks"
)

var itemIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Writer persists catalog changes made by staff.
type Writer interface {
	UpsertIngredient(ctx context.Context, ing Ingredient) (Ingredient, error)
	UpsertPizza(ctx context.Context, p Pizza) (Pizza, error)
	UpsertDrink(ctx context.Context, d Drink) (Drink, error)
	SetAvailable(ctx context.Context, kind ItemKind, id string, available bool) error
}

// Admin applies staff edits and drops cached listings afterwards. Removing an
// item only marks it unavailable; orders keep their frozen copies either way.
type Admin struct {
	Writer Writer
	Cache  *Cache
	Logger zerolog.Logger
}

// SaveIngredient creates or replaces an ingredient.
func (a *Admin) SaveIngredient(ctx context.Context, ing Ingredient) (Ingredient, error) {
	if err := checkItem(ing.ID, ing.Price.IsNegative()); err != nil {
		return Ingredient{}, err
	}
	if !ing.Category.Valid() {
		return Ingredient{}, badRequest("category", "unknown ingredient category", fmt.Errorf("category %q", ing.Category))
	}
	out, err := a.Writer.UpsertIngredient(ctx, ing)
	if err != nil {
		return Ingredient{}, fmt.Errorf("upsert ingredient: %w", err)
	}
	a.invalidate(ctx)
	return out, nil
}

// SavePizza creates or replaces a predefined pizza.
func (a *Admin) SavePizza(ctx context.Context, p Pizza) (Pizza, error) {
	if err := checkItem(p.ID, p.BasePrice.IsNegative()); err != nil {
		return Pizza{}, err
	}
	out, err := a.Writer.UpsertPizza(ctx, p)
	if err != nil {
		return Pizza{}, fmt.Errorf("upsert pizza: %w", err)
	}
	a.invalidate(ctx)
	return out, nil
}

// SaveDrink creates or replaces a drink.
func (a *Admin) SaveDrink(ctx context.Context, d Drink) (Drink, error) {
	if err := checkItem(d.ID, d.Price.IsNegative()); err != nil {
		return Drink{}, err
	}
	out, err := a.Writer.UpsertDrink(ctx, d)
	if err != nil {
		return Drink{}, fmt.Errorf("upsert drink: %w", err)
	}
	a.invalidate(ctx)
	return out, nil
}

// Withdraw takes an item off the menu.
func (a *Admin) Withdraw(ctx context.Context, kind ItemKind, id string) error {
	switch kind {
	case KindIngredients, KindPizzas, KindDrinks:
	default:
		return common.NotFound("unknown catalog collection", nil)
	}
	if err := a.Writer.SetAvailable(ctx, kind, id, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NotFound("catalog item not found", err)
		}
		return err
	}
	a.invalidate(ctx)
	return nil
}

func (a *Admin) invalidate(ctx context.Context) {
	if err := a.Cache.Purge(ctx, cache.CatalogPrefix()); err != nil {
		a.Logger.Warn().Err(err).Msg("catalog_cache_purge_failed")
	}
}

func checkItem(id string, negativePrice bool) error {
	if !itemIDPattern.MatchString(id) {
		return badRequest("id", "id must be a lowercase slug", fmt.Errorf("id %q", id))
	}
	if negativePrice {
		return common.InvalidField("price", "price must not be negative")
	}
	return nil
}
