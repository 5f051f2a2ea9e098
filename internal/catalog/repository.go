package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pizza/internal/money"
)

// PGRepository reads catalog documents from Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository backed by pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const ingredientColumns = `id, name, price::text, category, coalesce(image_url, ''), available`

// ListIngredients returns available ingredients ordered by category and name.
func (r *PGRepository) ListIngredients(ctx context.Context, f Filter) ([]Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients
WHERE available AND ($1 = '' OR category = $1)
ORDER BY category, name`
	rows, err := r.pool.Query(ctx, query, string(f.Category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Ingredient, 0)
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

// GetIngredient loads a single ingredient regardless of availability.
func (r *PGRepository) GetIngredient(ctx context.Context, id string) (Ingredient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, id)
	ing, err := scanIngredient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ingredient{}, ErrNotFound
	}
	return ing, err
}

const pizzaColumns = `id, name, description, base_price::text, coalesce(image_url, ''), category, ingredients, popular, available`

// ListPizzas returns available predefined pizzas.
func (r *PGRepository) ListPizzas(ctx context.Context, f Filter) ([]Pizza, error) {
	query := `SELECT ` + pizzaColumns + ` FROM pizzas
WHERE available AND (NOT $1 OR popular)
ORDER BY name`
	rows, err := r.pool.Query(ctx, query, f.PopularOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Pizza, 0)
	for rows.Next() {
		p, err := scanPizza(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPizza loads a single pizza regardless of availability.
func (r *PGRepository) GetPizza(ctx context.Context, id string) (Pizza, error) {
	p, err := scanPizza(r.pool.QueryRow(ctx, `SELECT `+pizzaColumns+` FROM pizzas WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Pizza{}, ErrNotFound
	}
	return p, err
}

const drinkColumns = `id, name, description, price::text, coalesce(image_url, ''), size, available`

// ListDrinks returns available drinks.
func (r *PGRepository) ListDrinks(ctx context.Context) ([]Drink, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+drinkColumns+` FROM drinks WHERE available ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Drink, 0)
	for rows.Next() {
		d, err := scanDrink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDrink loads a single drink regardless of availability.
func (r *PGRepository) GetDrink(ctx context.Context, id string) (Drink, error) {
	d, err := scanDrink(r.pool.QueryRow(ctx, `SELECT `+drinkColumns+` FROM drinks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Drink{}, ErrNotFound
	}
	return d, err
}

func scanIngredient(row pgx.Row) (Ingredient, error) {
	var (
		ing      Ingredient
		price    string
		category string
	)
	if err := row.Scan(&ing.ID, &ing.Name, &price, &category, &ing.ImageURL, &ing.Available); err != nil {
		return Ingredient{}, err
	}
	p, err := money.Parse(price)
	if err != nil {
		return Ingredient{}, fmt.Errorf("ingredient %s: %w", ing.ID, err)
	}
	ing.Price = p
	ing.Category = IngredientCategory(category)
	return ing, nil
}

func scanPizza(row pgx.Row) (Pizza, error) {
	var (
		p     Pizza
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.ImageURL, &p.Category, &p.Ingredients, &p.Popular, &p.Available); err != nil {
		return Pizza{}, err
	}
	base, err := money.Parse(price)
	if err != nil {
		return Pizza{}, fmt.Errorf("pizza %s: %w", p.ID, err)
	}
	p.BasePrice = base
	if p.Ingredients == nil {
		p.Ingredients = []string{}
	}
	return p, nil
}

func scanDrink(row pgx.Row) (Drink, error) {
	var (
		d     Drink
		price string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Description, &price, &d.ImageURL, &d.Size, &d.Available); err != nil {
		return Drink{}, err
	}
	p, err := money.Parse(price)
	if err != nil {
		return Drink{}, fmt.Errorf("drink %s: %w", d.ID, err)
	}
	d.Price = p
	return d, nil
}

// UpsertIngredient inserts or replaces an ingredient.
func (r *PGRepository) UpsertIngredient(ctx context.Context, ing Ingredient) (Ingredient, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO ingredients (id, name, price, category, image_url, available)
VALUES ($1, $2, $3::numeric, $4, NULLIF($5, ''), $6)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category,
    image_url = EXCLUDED.image_url, available = EXCLUDED.available
RETURNING `+ingredientColumns,
		ing.ID, ing.Name, ing.Price.StringFixed(2), string(ing.Category), ing.ImageURL, ing.Available)
	return scanIngredient(row)
}

// UpsertPizza inserts or replaces a predefined pizza.
func (r *PGRepository) UpsertPizza(ctx context.Context, p Pizza) (Pizza, error) {
	ingredients := p.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO pizzas (id, name, description, base_price, image_url, category, ingredients, popular, available)
VALUES ($1, $2, $3, $4::numeric, NULLIF($5, ''), $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name, description = EXCLUDED.description, base_price = EXCLUDED.base_price,
    image_url = EXCLUDED.image_url, category = EXCLUDED.category, ingredients = EXCLUDED.ingredients,
    popular = EXCLUDED.popular, available = EXCLUDED.available
RETURNING `+pizzaColumns,
		p.ID, p.Name, p.Description, p.BasePrice.StringFixed(2), p.ImageURL, p.Category, ingredients, p.Popular, p.Available)
	return scanPizza(row)
}

// UpsertDrink inserts or replaces a drink.
func (r *PGRepository) UpsertDrink(ctx context.Context, d Drink) (Drink, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO drinks (id, name, description, price, image_url, size, available)
VALUES ($1, $2, $3, $4::numeric, NULLIF($5, ''), $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
    image_url = EXCLUDED.image_url, size = EXCLUDED.size, available = EXCLUDED.available
RETURNING `+drinkColumns,
		d.ID, d.Name, d.Description, d.Price.StringFixed(2), d.ImageURL, d.Size, d.Available)
	return scanDrink(row)
}

// SetAvailable toggles availability of one catalog item.
func (r *PGRepository) SetAvailable(ctx context.Context, kind ItemKind, id string, available bool) error {
	var table string
	switch kind {
	case KindIngredients:
		table = "ingredients"
	case KindPizzas:
		table = "pizzas"
	case KindDrinks:
		table = "drinks"
	default:
		return fmt.Errorf("catalog: unknown kind %q", kind)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE `+table+` SET available = $2 WHERE id = $1`, id, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
