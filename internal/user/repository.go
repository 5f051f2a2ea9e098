package user

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores profiles in the profiles table. Addresses are a JSONB
// array.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Get implements Repository.
func (r *PGRepository) Get(ctx context.Context, userID string) (Profile, error) {
	const q = `
SELECT user_id, email, display_name, photo_url, phone_number, role, addresses, created_at, updated_at
FROM profiles WHERE user_id = $1`
	var (
		p            Profile
		photo, phone pgtype.Text
		addresses    []byte
	)
	err := r.pool.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.Email, &p.DisplayName, &photo, &phone,
		&p.Role, &addresses, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.PhotoURL = textToString(photo)
	p.PhoneNumber = textToString(phone)
	if err := json.Unmarshal(addresses, &p.Addresses); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Upsert implements Repository.
func (r *PGRepository) Upsert(ctx context.Context, p Profile) (Profile, error) {
	addresses, err := json.Marshal(p.Addresses)
	if err != nil {
		return Profile{}, err
	}
	const q = `
INSERT INTO profiles (user_id, email, display_name, photo_url, phone_number, role, addresses, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id) DO UPDATE SET
	email = EXCLUDED.email,
	display_name = EXCLUDED.display_name,
	photo_url = EXCLUDED.photo_url,
	phone_number = EXCLUDED.phone_number,
	role = EXCLUDED.role,
	addresses = EXCLUDED.addresses,
	updated_at = EXCLUDED.updated_at
RETURNING created_at`
	err = r.pool.QueryRow(ctx, q, p.UserID, p.Email, p.DisplayName, toText(p.PhotoURL), toText(p.PhoneNumber),
		p.Role, addresses, p.CreatedAt, p.UpdatedAt).Scan(&p.CreatedAt)
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// MemoryRepository keeps profiles in memory.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]Profile)}
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, userID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// Upsert implements Repository.
func (r *MemoryRepository) Upsert(_ context.Context, p Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.profiles[p.UserID]; ok {
		p.CreatedAt = existing.CreatedAt
	}
	r.profiles[p.UserID] = p
	return p, nil
}

func toText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func textToString(value pgtype.Text) string {
	if !value.Valid {
		return ""
	}
	return value.String
}
