// Package requestctx carries the authenticated identity through a request
// context.
package requestctx

import (
	"context"

	"github.com/dtroode/valhalla-auth/internal/model"
)

type userKey struct{}

var _ model.ContextManager = (*Manager)(nil)

// Manager represents a request context manager for identity operations.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserToContext returns a copy of ctx carrying user. The password hash is
// redacted before the identity is stored.
//
// Parameters:
//   - ctx: The request context
//   - user: The authenticated identity
//
// Returns a new context with the identity attached.
func (m *Manager) SetUserToContext(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userKey{}, user.Redacted())
}

// GetUserFromContext retrieves the identity attached by SetUserToContext.
//
// Parameters:
//   - ctx: The request context
//
// Returns the identity and a boolean indicating if one was found.
func (m *Manager) GetUserFromContext(ctx context.Context) (model.User, bool) {
	if ctx == nil {
		return model.User{}, false
	}
	user, ok := ctx.Value(userKey{}).(model.User)
	return user, ok
}
