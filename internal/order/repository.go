package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pizza/internal/money"
)

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id string, next Status, now time.Time) (Order, error)
}

// PGRepository stores orders in Postgres. Lines, address and payment are
// JSONB documents; money columns are numeric.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const orderColumns = `id::text, user_id, user_name, user_email, lines, subtotal::text, delivery_fee::text, total::text,
	delivery_address, status, payment, created_at, updated_at`

// Create implements Repository. An empty ID is generated.
func (r *PGRepository) Create(ctx context.Context, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return Order{}, fmt.Errorf("encode lines: %w", err)
	}
	addr, err := json.Marshal(o.DeliveryAddress)
	if err != nil {
		return Order{}, fmt.Errorf("encode address: %w", err)
	}
	var payment []byte
	if o.Payment != nil {
		if payment, err = json.Marshal(o.Payment); err != nil {
			return Order{}, fmt.Errorf("encode payment: %w", err)
		}
	}
	const q = `
INSERT INTO orders (id, user_id, user_name, user_email, lines, subtotal, delivery_fee, total,
	delivery_address, status, payment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11, $12, $13)`
	_, err = r.pool.Exec(ctx, q, o.ID, o.UserID, o.UserName, o.UserEmail, lines,
		o.Subtotal.String(), o.DeliveryFee.String(), o.Total.String(),
		addr, string(o.Status), payment, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// Get implements Repository.
func (r *PGRepository) Get(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListByUser implements Repository, newest first.
func (r *PGRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// UpdateStatus implements Repository. The current status is locked and the
// transition validated inside one transaction.
func (r *PGRepository) UpdateStatus(ctx context.Context, id string, next Status, now time.Time) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	var out Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := Transition(o.Status, next); err != nil {
			return err
		}
		o.Status = next
		o.UpdatedAt = now.UTC()
		if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, string(next), o.UpdatedAt); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                         Order
		lines, addr, payment      []byte
		subtotal, fee, total, sts string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.UserName, &o.UserEmail, &lines, &subtotal, &fee, &total,
		&addr, &sts, &payment, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return Order{}, fmt.Errorf("decode lines: %w", err)
	}
	if err := json.Unmarshal(addr, &o.DeliveryAddress); err != nil {
		return Order{}, fmt.Errorf("decode address: %w", err)
	}
	if len(payment) > 0 {
		o.Payment = new(PaymentInfo)
		if err := json.Unmarshal(payment, o.Payment); err != nil {
			return Order{}, fmt.Errorf("decode payment: %w", err)
		}
	}
	o.Status = Status(sts)
	if o.Subtotal, err = money.Parse(subtotal); err != nil {
		return Order{}, err
	}
	if o.DeliveryFee, err = money.Parse(fee); err != nil {
		return Order{}, err
	}
	if o.Total, err = money.Parse(total); err != nil {
		return Order{}, err
	}
	return o, nil
}

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[string]Order
	// Err, when set, is returned by Create.
	Err error
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]Order)}
}

// Create implements Repository.
func (r *MemoryRepository) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Order{}, r.Err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	r.orders[o.ID] = o
	return o, nil
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// ListByUser implements Repository, newest first.
func (r *MemoryRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return []Order{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// UpdateStatus implements Repository.
func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, next Status, now time.Time) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if err := Transition(o.Status, next); err != nil {
		return Order{}, err
	}
	o.Status = next
	o.UpdatedAt = now.UTC()
	r.orders[id] = o
	return o, nil
}
