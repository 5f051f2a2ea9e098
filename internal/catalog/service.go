package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pizza/internal/cache"
	"github.com/noah-isme/backend-pizza/internal/common"
)

// ErrNotFound is returned when a catalog document does not exist or is unavailable.
var ErrNotFound = errors.New("catalog: item not found")

// Filter narrows catalog reads. Only available items are ever returned.
type Filter struct {
	Category    IngredientCategory
	PopularOnly bool
}

type queryProvider interface {
	ListIngredients(ctx context.Context, f Filter) ([]Ingredient, error)
	ListPizzas(ctx context.Context, f Filter) ([]Pizza, error)
	ListDrinks(ctx context.Context) ([]Drink, error)
	GetIngredient(ctx context.Context, id string) (Ingredient, error)
	GetPizza(ctx context.Context, id string) (Pizza, error)
	GetDrink(ctx context.Context, id string) (Drink, error)
}

// Service serves catalog reads with a cache-aside Redis layer.
type Service struct {
	queries queryProvider
	cache   *Cache
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *Cache
	Logger  *zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, logger: logger}, nil
}

// Sizes returns the sizes offered for every pizza.
func (s *Service) Sizes() []PizzaSize {
	return StandardSizes()
}

// Ingredients lists available ingredients, optionally restricted to one category.
func (s *Service) Ingredients(ctx context.Context, category IngredientCategory) ([]Ingredient, error) {
	if category != "" && !category.Valid() {
		return nil, badRequest("category", "unknown ingredient category", fmt.Errorf("category %q", category))
	}
	key := cache.KeyCatalogList("ingredients", string(category))
	var out []Ingredient
	if s.cached(ctx, key, &out) {
		return out, nil
	}
	out, err := s.queries.ListIngredients(ctx, Filter{Category: category})
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	s.store(ctx, key, out)
	return out, nil
}

// Pizzas lists available predefined pizzas.
func (s *Service) Pizzas(ctx context.Context, popularOnly bool) ([]Pizza, error) {
	qualifier := "all"
	if popularOnly {
		qualifier = "popular"
	}
	key := cache.KeyCatalogList("pizzas", qualifier)
	var out []Pizza
	if s.cached(ctx, key, &out) {
		return out, nil
	}
	out, err := s.queries.ListPizzas(ctx, Filter{PopularOnly: popularOnly})
	if err != nil {
		return nil, fmt.Errorf("list pizzas: %w", err)
	}
	s.store(ctx, key, out)
	return out, nil
}

// Drinks lists available drinks.
func (s *Service) Drinks(ctx context.Context) ([]Drink, error) {
	key := cache.KeyCatalogList("drinks")
	var out []Drink
	if s.cached(ctx, key, &out) {
		return out, nil
	}
	out, err := s.queries.ListDrinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drinks: %w", err)
	}
	s.store(ctx, key, out)
	return out, nil
}

// Ingredient fetches an available ingredient by id.
func (s *Service) Ingredient(ctx context.Context, id string) (Ingredient, error) {
	var out Ingredient
	err := s.lookup(ctx, cache.KeyCatalogItem("ingredient", id), &out, func() (any, error) {
		v, err := s.queries.GetIngredient(ctx, id)
		if err == nil && !v.Available {
			err = ErrNotFound
		}
		out = v
		return v, err
	})
	return out, err
}

// Pizza fetches an available predefined pizza by id.
func (s *Service) Pizza(ctx context.Context, id string) (Pizza, error) {
	var out Pizza
	err := s.lookup(ctx, cache.KeyCatalogItem("pizza", id), &out, func() (any, error) {
		v, err := s.queries.GetPizza(ctx, id)
		if err == nil && !v.Available {
			err = ErrNotFound
		}
		out = v
		return v, err
	})
	return out, err
}

// Drink fetches an available drink by id.
func (s *Service) Drink(ctx context.Context, id string) (Drink, error) {
	var out Drink
	err := s.lookup(ctx, cache.KeyCatalogItem("drink", id), &out, func() (any, error) {
		v, err := s.queries.GetDrink(ctx, id)
		if err == nil && !v.Available {
			err = ErrNotFound
		}
		out = v
		return v, err
	})
	return out, err
}

// Menu loads the whole available catalog straight from the repository.
func (s *Service) Menu(ctx context.Context) (Menu, error) {
	ingredients, err := s.queries.ListIngredients(ctx, Filter{})
	if err != nil {
		return Menu{}, fmt.Errorf("list ingredients: %w", err)
	}
	pizzas, err := s.queries.ListPizzas(ctx, Filter{})
	if err != nil {
		return Menu{}, fmt.Errorf("list pizzas: %w", err)
	}
	drinks, err := s.queries.ListDrinks(ctx)
	if err != nil {
		return Menu{}, fmt.Errorf("list drinks: %w", err)
	}
	return Menu{Ingredients: ingredients, Pizzas: pizzas, Drinks: drinks}, nil
}

// Watch polls the repository and emits the menu whenever it changes. The
// first successful read is always emitted. The channel is closed once ctx is
// done.
func (s *Service) Watch(ctx context.Context, every time.Duration) <-chan Menu {
	if every <= 0 {
		every = time.Minute
	}
	out := make(chan Menu, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		var last []byte
		for {
			menu, err := s.Menu(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn().Err(err).Msg("catalog_watch_failed")
			} else if encoded, _ := json.Marshal(menu); !bytes.Equal(encoded, last) {
				last = encoded
				s.refresh(ctx, menu)
				select {
				case out <- menu:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

// refresh replaces cached listings with the freshly loaded menu.
func (s *Service) refresh(ctx context.Context, menu Menu) {
	if s.cache == nil {
		return
	}
	byCategory := map[IngredientCategory][]Ingredient{}
	for _, ing := range menu.Ingredients {
		byCategory[ing.Category] = append(byCategory[ing.Category], ing)
	}
	s.store(ctx, cache.KeyCatalogList("ingredients", ""), menu.Ingredients)
	for category, items := range byCategory {
		s.store(ctx, cache.KeyCatalogList("ingredients", string(category)), items)
	}
	popular := make([]Pizza, 0, len(menu.Pizzas))
	for _, p := range menu.Pizzas {
		if p.Popular {
			popular = append(popular, p)
		}
	}
	s.store(ctx, cache.KeyCatalogList("pizzas", "all"), menu.Pizzas)
	s.store(ctx, cache.KeyCatalogList("pizzas", "popular"), popular)
	s.store(ctx, cache.KeyCatalogList("drinks"), menu.Drinks)
}

func (s *Service) lookup(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if s.cached(ctx, key, dst) {
		return nil
	}
	v, err := load()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NotFound("catalog item not found", err)
		}
		return err
	}
	s.store(ctx, key, v)
	return nil
}

func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("catalog_cache_read_failed")
		return false
	}
	return ok
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("catalog_cache_write_failed")
	}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": strings.TrimSpace(field),
		},
	}
}
