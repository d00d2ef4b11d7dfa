package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RedactedPassword replaces the password hash on identities handed to
// anything outside the authentication core.
const RedactedPassword = "********"

// Role enumerates identity roles.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleModerator:
		return true
	}
	return false
}

// UserStore defines persistence operations for identities.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// User represents a stored identity with its credential.
// PasswordHash is empty when no credential has been set yet.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Country      string    `json:"country"`
	Phone        string    `json:"phone"`
	DateOfBirth  time.Time `json:"dob,omitzero"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Redacted returns a copy of u safe to expose to consumers.
func (u User) Redacted() User {
	u.PasswordHash = RedactedPassword
	return u
}

// PublicUser is the minimal identity returned on sign-in.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// SignInResult is returned by a successful credential authentication.
type SignInResult struct {
	AccessToken string     `json:"accessToken"`
	User        PublicUser `json:"user"`
}

// RegisterParams describes a new identity. Password may be empty, in which
// case the identity has no credential until one is set through a reset token.
type RegisterParams struct {
	Email       string
	Password    string
	Role        Role
	Name        string
	Country     string
	Phone       string
	DateOfBirth time.Time
}

// UpdateUserParams carries a partial profile change. Nil fields are left
// untouched. Credentials cannot be changed this way.
type UpdateUserParams struct {
	Email       *string
	Role        *Role
	Name        *string
	Country     *string
	Phone       *string
	DateOfBirth *time.Time
}
