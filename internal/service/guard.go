package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
	"github.com/dtroode/valhalla-auth/internal/token"
)

const bearerScheme = "bearer"

// Guard turns an Authorization header into an authenticated request context.
type Guard struct {
	tokenManager    model.TokenManager
	userStore       model.UserStore
	revocationStore model.RevocationStore
	contextManager  model.ContextManager
	logger          *logger.Logger
}

// NewGuard creates a Guard. revocationStore may be nil, in which case tokens
// are only checked for signature and expiry.
func NewGuard(
	tokenManager model.TokenManager,
	userStore model.UserStore,
	revocationStore model.RevocationStore,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Guard {
	return &Guard{
		tokenManager:    tokenManager,
		userStore:       userStore,
		revocationStore: revocationStore,
		contextManager:  contextManager,
		logger:          logger,
	}
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}

// Authorize verifies the bearer token in header, resolves its subject and
// returns ctx with the redacted identity attached.
func (g *Guard) Authorize(ctx context.Context, header string) (context.Context, error) {
	spanCtx, span := tracer().Start(ctx, "Guard.Authorize")
	defer span.End()

	claims, err := g.verify(spanCtx, header)
	if err != nil {
		return nil, err
	}

	user, err := g.userStore.GetByID(spanCtx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			g.logger.Info("Auth guard: token subject no longer exists",
				"user_id", claims.Subject)
			return nil, apierrors.NewErrInvalidAuthorizationToken()
		}
		g.logger.Error("Auth guard: failed to get user by id",
			"user_id", claims.Subject,
			"error", err.Error())
		spanError(span, err)
		return nil, apierrors.NewErrInternalServerError(fmt.Errorf("failed to get user by id: %w", err))
	}

	return g.contextManager.SetUserToContext(ctx, user.Redacted()), nil
}

// Revoke denies the presented token for the rest of its lifetime.
func (g *Guard) Revoke(ctx context.Context, header string) error {
	if g.revocationStore == nil {
		return apierrors.NewErrInternalServerError(errors.New("token revocation is not configured"))
	}

	claims, err := g.verify(ctx, header)
	if err != nil {
		return err
	}

	if err := g.revocationStore.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		g.logger.Error("Auth guard: failed to revoke token",
			"user_id", claims.Subject,
			"error", err.Error())
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to revoke token: %w", err))
	}

	g.logger.Info("Auth guard: token revoked",
		"user_id", claims.Subject)
	return nil
}

func (g *Guard) verify(ctx context.Context, header string) (model.Claims, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return model.Claims{}, apierrors.NewErrMissingAuthorizationToken()
	}

	claims, err := g.tokenManager.Verify(raw)
	if err != nil {
		if token.IsExpired(err) {
			g.logger.Info("Auth guard: expired token presented")
		} else {
			g.logger.Debug("Auth guard: token rejected",
				"error", err.Error())
		}
		return model.Claims{}, apierrors.NewErrInvalidAuthorizationToken()
	}

	if g.revocationStore != nil && claims.ID != "" {
		revoked, err := g.revocationStore.IsRevoked(ctx, claims.ID)
		if err != nil {
			g.logger.Error("Auth guard: failed to check revocation",
				"user_id", claims.Subject,
				"error", err.Error())
			return model.Claims{}, apierrors.NewErrInternalServerError(fmt.Errorf("failed to check revocation: %w", err))
		}
		if revoked {
			g.logger.Info("Auth guard: revoked token presented",
				"user_id", claims.Subject)
			return model.Claims{}, apierrors.NewErrInvalidAuthorizationToken()
		}
	}

	return claims, nil
}
