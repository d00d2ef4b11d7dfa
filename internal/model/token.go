package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Claims is the decoded payload of a bearer token.
type Claims struct {
	Subject   uuid.UUID
	Username  string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager issues and verifies signed bearer tokens.
type TokenManager interface {
	Issue(userID uuid.UUID, username string) (string, error)
	Verify(token string) (Claims, error)
}

// PasswordHasher produces and checks one-way password hashes.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, password, hash string) (bool, error)
}
