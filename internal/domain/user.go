package domain

import (
	"context"
	"errors"
)

// Role is the caller's access level as asserted by the identity provider.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the caller holds the administrative role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// CanAccess reports whether the caller may read resources owned by ownerID.
func (i *Identity) CanAccess(ownerID string) bool {
	if i == nil {
		return false
	}
	return i.IsAdmin() || i.UserID == ownerID
}

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

type identityKey struct{}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity stored in ctx.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// ActorID returns the caller's user id for audit records, or "system".
func ActorID(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID
	}
	return "system"
}
