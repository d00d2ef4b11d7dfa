package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ResetTokenTTL is the default lifetime of a password reset token.
const ResetTokenTTL = 24 * time.Hour

// ResetTokenStore persists single-use password reset tokens.
type ResetTokenStore interface {
	// Create stores token and drops every other token of the same user.
	Create(ctx context.Context, token ResetToken) error
	GetByToken(ctx context.Context, token string) (ResetToken, error)
	// Consume atomically deletes the token, provided it is still unexpired
	// at now, and stores passwordHash for its owner. It returns ErrNotFound
	// when the token is gone or expired; nothing is written in that case.
	Consume(ctx context.Context, token string, passwordHash string, now time.Time) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ResetToken is a single-use secret authorizing a password change.
type ResetToken struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
	User      User
}

// Expired reports whether the token is no longer usable at now.
func (t ResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
