package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
	"github.com/dtroode/valhalla-auth/internal/password"
)

const (
	// DefaultResetBaseURL is the page that accepts a reset token.
	DefaultResetBaseURL = "http://localhost:3000/auth/set-password"

	resetTokenBytes = 32
)

// PasswordSetup issues single-use reset tokens and consumes them to set a
// new password.
type PasswordSetup struct {
	userStore  model.UserStore
	resetStore model.ResetTokenStore
	hasher     model.PasswordHasher
	notifier   model.Notifier
	logger     *logger.Logger

	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// PasswordSetupOption configures PasswordSetup.
type PasswordSetupOption func(*PasswordSetup)

// WithResetTTL overrides how long a reset token stays usable.
func WithResetTTL(ttl time.Duration) PasswordSetupOption {
	return func(s *PasswordSetup) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithResetBaseURL overrides the link the token is appended to.
func WithResetBaseURL(baseURL string) PasswordSetupOption {
	return func(s *PasswordSetup) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) PasswordSetupOption {
	return func(s *PasswordSetup) {
		if now != nil {
			s.now = now
		}
	}
}

func NewPasswordSetup(
	userStore model.UserStore,
	resetStore model.ResetTokenStore,
	hasher model.PasswordHasher,
	notifier model.Notifier,
	logger *logger.Logger,
	opts ...PasswordSetupOption,
) *PasswordSetup {
	s := &PasswordSetup{
		userStore:  userStore,
		resetStore: resetStore,
		hasher:     hasher,
		notifier:   notifier,
		logger:     logger,
		ttl:        model.ResetTokenTTL,
		baseURL:    DefaultResetBaseURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset creates a reset token for user, replacing any earlier one, and
// hands the link to the notifier. Delivery failures are logged only and the
// undelivered token is withdrawn.
func (s *PasswordSetup) RequestReset(ctx context.Context, user model.User) error {
	ctx, span := tracer().Start(ctx, "PasswordSetup.RequestReset")
	defer span.End()

	secret, err := newResetSecret()
	if err != nil {
		spanError(span, err)
		return apierrors.NewErrInternalServerError(err)
	}

	now := s.now()
	token := model.ResetToken{
		ID:        uuid.New(),
		Token:     secret,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if err := s.resetStore.Create(ctx, token); err != nil {
		s.logger.Error("Password setup: failed to store reset token",
			"user_id", user.ID,
			"error", err.Error())
		spanError(span, err)
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to store reset token: %w", err))
	}

	link, err := s.link(secret)
	if err != nil {
		spanError(span, err)
		return apierrors.NewErrInternalServerError(err)
	}

	if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, link); err != nil {
		s.logger.Error("Password setup: failed to send reset email",
			"user_id", user.ID,
			"error", err.Error())
		s.withdraw(ctx, user, secret)
		return nil
	}

	s.logger.Info("Password setup: reset token issued",
		"user_id", user.ID,
		"expires_at", token.ExpiresAt)

	return nil
}

func (s *PasswordSetup) withdraw(ctx context.Context, user model.User, secret string) {
	if err := s.resetStore.Delete(context.WithoutCancel(ctx), secret); err != nil {
		s.logger.Error("Password setup: failed to withdraw undelivered reset token",
			"user_id", user.ID,
			"error", err.Error())
		return
	}
	s.logger.Info("Password setup: undelivered reset token withdrawn",
		"user_id", user.ID)
}

// RequestResetByEmail issues a reset token when email belongs to an identity.
// Unknown emails succeed silently.
func (s *PasswordSetup) RequestResetByEmail(ctx context.Context, email string) error {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Info("Password setup: reset requested for unknown email",
				"login", email)
			return nil
		}
		s.logger.Error("Password setup: failed to get user by email",
			"login", email,
			"error", err.Error())
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to get user by email: %w", err))
	}

	return s.RequestReset(ctx, user)
}

// SetPassword consumes token and stores newPassword as the owner's credential.
// A token can succeed at most once.
func (s *PasswordSetup) SetPassword(ctx context.Context, token, newPassword string) error {
	ctx, span := tracer().Start(ctx, "PasswordSetup.SetPassword")
	defer span.End()

	resetToken, err := s.resetStore.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrInvalidOrExpiredToken()
		}
		s.logger.Error("Password setup: failed to get reset token",
			"error", err.Error())
		spanError(span, err)
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to get reset token: %w", err))
	}

	now := s.now()
	if resetToken.Expired(now) {
		s.logger.Info("Password setup: expired reset token presented",
			"user_id", resetToken.UserID)
		return apierrors.NewErrTokenExpired()
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		if errors.Is(err, password.ErrInvalidInput) {
			return apierrors.NewErrInvalidInput(err)
		}
		s.logger.Error("Password setup: failed to hash password",
			"user_id", resetToken.UserID,
			"error", err.Error())
		spanError(span, err)
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to hash password: %w", err))
	}

	userID, err := s.resetStore.Consume(ctx, token, hash, now)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrInvalidOrExpiredToken()
		}
		s.logger.Error("Password setup: failed to consume reset token",
			"user_id", resetToken.UserID,
			"error", err.Error())
		spanError(span, err)
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to consume reset token: %w", err))
	}

	s.logger.Info("Password setup: password set",
		"user_id", userID)

	return nil
}

// PurgeExpired removes reset tokens that can no longer be used.
func (s *PasswordSetup) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.resetStore.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired reset tokens: %w", err)
	}

	if n > 0 {
		s.logger.Info("Password setup: purged expired reset tokens",
			"count", n)
	}
	return n, nil
}

func (s *PasswordSetup) link(token string) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse reset base url: %w", err)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func newResetSecret() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
