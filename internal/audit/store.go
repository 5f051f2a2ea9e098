package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps audit entries in the audit_logs table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Insert implements Store.
func (s *PGStore) Insert(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO audit_logs (id, actor_kind, actor_user_id, action, resource_type, resource_id,
                        method, path, route, status, ip, user_agent, request_id, metadata, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''), $10,
        NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), $14, $15)`,
		e.ID, string(e.ActorKind), e.ActorUserID, e.Action, e.ResourceType, e.ResourceID,
		e.Method, e.Path, e.Route, e.Status, e.IP, e.UserAgent, e.RequestID, nullJSON(e.Metadata), e.CreatedAt)
	return err
}

// List implements Store, newest first.
func (s *PGStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id::text, actor_kind, coalesce(actor_user_id, ''), action, resource_type, coalesce(resource_id, ''),
       method, path, coalesce(route, ''), status, coalesce(ip, ''), coalesce(user_agent, ''),
       coalesce(request_id, ''), metadata, created_at
FROM audit_logs
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
			meta []byte
		)
		if err := rows.Scan(&e.ID, &kind, &e.ActorUserID, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.Method, &e.Path, &e.Route, &e.Status, &e.IP, &e.UserAgent, &e.RequestID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorKind = ActorKind(kind)
		e.Metadata = meta
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
