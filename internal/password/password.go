// Package password hashes and verifies user passwords with bcrypt.
//
// Hashing is CPU bound. A Hasher bounds the number of concurrent bcrypt
// operations so a burst of logins cannot starve other requests; callers
// waiting for a slot give up when their context is cancelled.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/dtroode/valhalla-auth/internal/model"
)

const (
	// DefaultCost is the bcrypt cost factor (salt rounds).
	DefaultCost = 10
	// MinLength is the minimum password length in characters.
	MinLength = 8
	// MaxBytes is the longest input bcrypt accepts.
	MaxBytes = 72
)

// ErrInvalidInput matches every password policy violation.
var ErrInvalidInput = errors.New("invalid password")

// ErrComparison is returned when a stored hash is not a bcrypt hash.
var ErrComparison = errors.New("error comparing passwords")

// InputError is a password policy violation. Its message is safe to show
// to the caller.
type InputError struct {
	msg string
}

func (e *InputError) Error() string {
	return e.msg
}

// Is makes every InputError match ErrInvalidInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

var (
	ErrEmpty    = &InputError{msg: "Password cannot be empty"}
	ErrTooShort = &InputError{msg: fmt.Sprintf("Password must be at least %d characters long", MinLength)}
	ErrTooLong  = &InputError{msg: fmt.Sprintf("Password must be at most %d bytes long", MaxBytes)}
)

var _ model.PasswordHasher = (*Hasher)(nil)

// Hasher is safe for concurrent use.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher creates a Hasher with the given bcrypt cost. maxConcurrent
// limits simultaneous bcrypt operations; zero or less means twice
// GOMAXPROCS.
func NewHasher(cost int, maxConcurrent int64) *Hasher {
	if cost == 0 {
		cost = DefaultCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = int64(2 * runtime.GOMAXPROCS(0))
	}
	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(maxConcurrent),
	}
}

// Validate checks password against the password policy.
func Validate(password string) error {
	switch {
	case password == "":
		return ErrEmpty
	case utf8.RuneCountInString(password) < MinLength:
		return ErrTooShort
	case len(password) > MaxBytes:
		return ErrTooLong
	}
	return nil
}

// Hash returns a salted bcrypt hash of password. Two calls with the same
// input produce different hashes.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := Validate(password); err != nil {
		return "", err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	return string(hashed), nil
}

// Compare reports whether password matches hash. The comparison itself is
// constant time. A malformed hash yields ErrComparison.
func (h *Hasher) Compare(ctx context.Context, password, hash string) (bool, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return false, fmt.Errorf("%w: %w", ErrComparison, err)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("failed to acquire hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrComparison, err)
	}
}
