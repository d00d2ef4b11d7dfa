package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
)

// timingPassword is hashed once and compared against when an identity has no
// usable credential, so unknown and known identities cost the same.
const timingPassword = "valhalla-timing-placeholder"

// Auth verifies credentials and issues access tokens.
type Auth struct {
	userStore    model.UserStore
	hasher       model.PasswordHasher
	tokenManager model.TokenManager
	logger       *logger.Logger

	placeholderMu   sync.Mutex
	placeholderHash string
}

func NewAuth(
	userStore model.UserStore,
	hasher model.PasswordHasher,
	tokenManager model.TokenManager,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		hasher:       hasher,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// Authenticate checks identifier and password and returns a signed token
// with the public part of the identity. Unknown identifiers and wrong
// passwords both yield apierrors.ErrInvalidCredentials.
func (a *Auth) Authenticate(ctx context.Context, identifier, password string) (model.SignInResult, error) {
	ctx, span := tracer().Start(ctx, "Auth.Authenticate")
	defer span.End()

	a.logger.Debug("Auth service: authenticating user",
		"login", identifier)

	user, err := a.userStore.GetByEmail(ctx, identifier)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"login", identifier,
			"error", err.Error())
		spanError(span, err)
		return model.SignInResult{}, apierrors.NewErrInternalServerError(fmt.Errorf("failed to get user by email: %w", err))
	}

	if errors.Is(err, model.ErrNotFound) || user.PasswordHash == "" {
		a.compareWithPlaceholder(ctx, password)
		a.logger.Info("Auth service: rejected credentials",
			"login", identifier)
		return model.SignInResult{}, apierrors.NewErrInvalidCredentials()
	}

	ok, err := a.hasher.Compare(ctx, password, user.PasswordHash)
	if err != nil {
		a.logger.Error("Auth service: failed to compare password",
			"user_id", user.ID,
			"error", err.Error())
		spanError(span, err)
		return model.SignInResult{}, apierrors.NewErrInternalServerError(fmt.Errorf("failed to compare password: %w", err))
	}
	if !ok {
		a.logger.Info("Auth service: rejected credentials",
			"login", identifier)
		return model.SignInResult{}, apierrors.NewErrInvalidCredentials()
	}

	accessToken, err := a.tokenManager.Issue(user.ID, user.Email)
	if err != nil {
		a.logger.Error("Auth service: failed to issue access token",
			"user_id", user.ID,
			"error", err.Error())
		spanError(span, err)
		return model.SignInResult{}, apierrors.NewErrInternalServerError(fmt.Errorf("failed to issue access token: %w", err))
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	a.logger.Info("Auth service: user authenticated",
		"user_id", user.ID)

	return model.SignInResult{
		AccessToken: accessToken,
		User: model.PublicUser{
			ID:       user.ID,
			Username: user.Email,
		},
	}, nil
}

func (a *Auth) compareWithPlaceholder(ctx context.Context, password string) {
	hash := a.placeholder(ctx)
	if hash == "" || password == "" {
		return
	}
	_, _ = a.hasher.Compare(ctx, password, hash)
}

// placeholder returns the timing hash, computing it on first use. A failed
// attempt is retried by the next caller.
func (a *Auth) placeholder(ctx context.Context) string {
	a.placeholderMu.Lock()
	defer a.placeholderMu.Unlock()

	if a.placeholderHash != "" {
		return a.placeholderHash
	}

	hash, err := a.hasher.Hash(context.WithoutCancel(ctx), timingPassword)
	if err != nil {
		a.logger.Warn("Auth service: failed to prepare placeholder hash",
			"error", err.Error())
		return ""
	}
	a.placeholderHash = hash
	return hash
}
