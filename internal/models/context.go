package models

import "context"

type identityContextKey struct{}

// Identity is the caller identity established at the HTTP edge.
type Identity struct {
	Subject   string
	Role      string
	RequestId string
}

// IsAdmin reports whether the caller may manage settings.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// WithIdentity attaches the caller identity to a context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// GetIdentity retrieves the caller identity from context, or nil if absent.
func GetIdentity(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
