package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pizza/internal/money"
)

// PGQueries reads aggregates straight from the orders table.
type PGQueries struct {
	pool *pgxpool.Pool
}

// NewPGQueries constructs PGQueries.
func NewPGQueries(pool *pgxpool.Pool) *PGQueries {
	return &PGQueries{pool: pool}
}

const salesDailySQL = `
SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day,
       count(*),
       coalesce(sum(total), 0)::text
FROM orders
WHERE created_at >= $1 AND created_at < $2
  AND status NOT IN ('pending', 'cancelled')
GROUP BY 1
ORDER BY 1`

// SalesDaily implements Querier.
func (q *PGQueries) SalesDaily(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	rows, err := q.pool.Query(ctx, salesDailySQL, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailySales
	for rows.Next() {
		var (
			d       DailySales
			revenue string
		)
		if err := rows.Scan(&d.Day, &d.Orders, &revenue); err != nil {
			return nil, err
		}
		if d.Revenue, err = money.Parse(revenue); err != nil {
			return nil, err
		}
		d.Day = d.Day.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

const topItemsSQL = `
SELECT l->>'type',
       coalesce(l->'item'->>'id', ''),
       CASE WHEN l->>'type' = 'custom-pizza' THEN 'Custom pizza' ELSE coalesce(l->'item'->>'name', '') END,
       sum((l->>'quantity')::int),
       sum((l->>'subtotal')::numeric)::text
FROM orders o
CROSS JOIN LATERAL jsonb_array_elements(o.lines) AS l
WHERE o.status NOT IN ('pending', 'cancelled')
GROUP BY 1, 2, 3
ORDER BY 4 DESC, 3
LIMIT $1 OFFSET $2`

// TopItems implements Querier.
func (q *PGQueries) TopItems(ctx context.Context, limit, offset int) ([]TopItem, error) {
	rows, err := q.pool.Query(ctx, topItemsSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopItem
	for rows.Next() {
		var (
			it      TopItem
			revenue string
		)
		if err := rows.Scan(&it.Kind, &it.ItemID, &it.Name, &it.Quantity, &revenue); err != nil {
			return nil, err
		}
		if it.Revenue, err = money.Parse(revenue); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
