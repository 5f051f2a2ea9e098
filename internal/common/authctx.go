package common

import "context"

type ctxKey string

const identityKey ctxKey = "auth/identity"

// Identity is the authenticated principal supplied by the identity provider.
type Identity struct {
	UserID string
	Role   string
	Name   string
	Email  string
}

// IsAdmin reports whether the principal carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// WithIdentity stores the authenticated identity on the provided context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated identity from the context if present.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	if !ok || v.UserID == "" {
		return Identity{}, false
	}
	return v, true
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	return id.UserID, ok
}
