package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/valhalla-auth/internal/apierrors"
	"github.com/dtroode/valhalla-auth/internal/logger"
	"github.com/dtroode/valhalla-auth/internal/model"
	"github.com/dtroode/valhalla-auth/internal/password"
)

// ResetRequester sends a password setup link to an identity.
type ResetRequester interface {
	RequestReset(ctx context.Context, user model.User) error
}

var errRoleNotAllowed = fmt.Errorf("role must be one of %s, %s, %s",
	model.RoleAdmin, model.RoleUser, model.RoleModerator)

// Users registers and manages identities.
//
// Callers may read every profile. They may change or delete their own
// identity; admins may change or delete any identity and are the only ones
// allowed to assign roles.
type Users struct {
	userStore      model.UserStore
	hasher         model.PasswordHasher
	setup          ResetRequester
	contextManager model.ContextManager
	logger         *logger.Logger
	now            func() time.Time
}

// NewUsers creates the user service. When setup is not nil, identities
// registered without a password receive a setup link. contextManager
// resolves the calling identity for profile changes.
func NewUsers(
	userStore model.UserStore,
	hasher model.PasswordHasher,
	setup ResetRequester,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Users {
	return &Users{
		userStore:      userStore,
		hasher:         hasher,
		setup:          setup,
		contextManager: contextManager,
		logger:         logger,
		now:            time.Now,
	}
}

// SignUp registers an identity for an anonymous caller. Only the USER role
// can be requested this way.
func (s *Users) SignUp(ctx context.Context, params model.RegisterParams) (model.User, error) {
	if params.Role != "" && params.Role != model.RoleUser {
		s.logger.Info("Users service: rejected role on sign-up",
			"role", params.Role)
		return model.User{}, apierrors.NewErrForbidden()
	}
	params.Role = model.RoleUser
	return s.Register(ctx, params)
}

// Register validates params and stores a new identity. The returned identity
// is redacted.
func (s *Users) Register(ctx context.Context, params model.RegisterParams) (model.User, error) {
	ctx, span := tracer().Start(ctx, "Users.Register")
	defer span.End()

	email, err := normalizeEmail(params.Email)
	if err != nil {
		return model.User{}, err
	}

	role := params.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return model.User{}, apierrors.NewErrInvalidInput(errRoleNotAllowed)
	}

	var hash string
	if params.Password != "" {
		hash, err = s.hasher.Hash(ctx, params.Password)
		if err != nil {
			if errors.Is(err, password.ErrInvalidInput) {
				return model.User{}, apierrors.NewErrInvalidInput(err)
			}
			s.logger.Error("Users service: failed to hash password",
				"login", email,
				"error", err.Error())
			spanError(span, err)
			return model.User{}, apierrors.NewErrInternalServerError(fmt.Errorf("failed to hash password: %w", err))
		}
	}

	now := s.now().UTC()
	user, err := s.userStore.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Name:         params.Name,
		Country:      params.Country,
		Phone:        params.Phone,
		DateOfBirth:  params.DateOfBirth,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			s.logger.Info("Users service: user already exists",
				"login", email)
			return model.User{}, apierrors.NewErrEmailIsTaken(email)
		}
		s.logger.Error("Users service: failed to create user",
			"login", email,
			"error", err.Error())
		spanError(span, err)
		return model.User{}, apierrors.NewErrInternalServerError(fmt.Errorf("failed to create user: %w", err))
	}

	s.logger.Info("Users service: user registered",
		"user_id", user.ID,
		"role", user.Role)

	if hash == "" && s.setup != nil {
		if err := s.setup.RequestReset(ctx, user); err != nil {
			s.logger.Error("Users service: failed to send password setup link",
				"user_id", user.ID,
				"error", err.Error())
		}
	}

	return user.Redacted(), nil
}

// List returns every identity, redacted.
func (s *Users) List(ctx context.Context) ([]model.User, error) {
	ctx, span := tracer().Start(ctx, "Users.List")
	defer span.End()

	users, err := s.userStore.List(ctx)
	if err != nil {
		s.logger.Error("Users service: failed to list users",
			"error", err.Error())
		spanError(span, err)
		return nil, apierrors.NewErrInternalServerError(fmt.Errorf("failed to list users: %w", err))
	}

	for i := range users {
		users[i] = users[i].Redacted()
	}
	return users, nil
}

// Get returns the identity with id, redacted.
func (s *Users) Get(ctx context.Context, id uuid.UUID) (model.User, error) {
	ctx, span := tracer().Start(ctx, "Users.Get")
	defer span.End()

	user, err := s.getByID(ctx, id)
	if err != nil {
		spanError(span, err)
		return model.User{}, err
	}
	return user.Redacted(), nil
}

// Update applies params to the identity with id and returns it redacted.
func (s *Users) Update(ctx context.Context, id uuid.UUID, params model.UpdateUserParams) (model.User, error) {
	ctx, span := tracer().Start(ctx, "Users.Update")
	defer span.End()

	if err := s.authorizeChange(ctx, id, params.Role != nil); err != nil {
		return model.User{}, err
	}

	user, err := s.getByID(ctx, id)
	if err != nil {
		spanError(span, err)
		return model.User{}, err
	}

	if params.Email != nil {
		email, err := normalizeEmail(*params.Email)
		if err != nil {
			return model.User{}, err
		}
		user.Email = email
	}
	if params.Role != nil {
		if !params.Role.Valid() {
			return model.User{}, apierrors.NewErrInvalidInput(errRoleNotAllowed)
		}
		user.Role = *params.Role
	}
	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.Country != nil {
		user.Country = *params.Country
	}
	if params.Phone != nil {
		user.Phone = *params.Phone
	}
	if params.DateOfBirth != nil {
		user.DateOfBirth = *params.DateOfBirth
	}
	user.UpdatedAt = s.now().UTC()

	saved, err := s.userStore.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			return model.User{}, apierrors.NewErrUserNotFound()
		case errors.Is(err, model.ErrAlreadyExists):
			s.logger.Info("Users service: email already taken",
				"user_id", id)
			return model.User{}, apierrors.NewErrEmailIsTaken(user.Email)
		}
		s.logger.Error("Users service: failed to update user",
			"user_id", id,
			"error", err.Error())
		spanError(span, err)
		return model.User{}, apierrors.NewErrInternalServerError(fmt.Errorf("failed to update user: %w", err))
	}

	s.logger.Info("Users service: user updated",
		"user_id", saved.ID,
		"role", saved.Role)

	return saved.Redacted(), nil
}

// Delete removes the identity with id together with its credential and
// reset tokens.
func (s *Users) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer().Start(ctx, "Users.Delete")
	defer span.End()

	if err := s.authorizeChange(ctx, id, false); err != nil {
		return err
	}

	if err := s.userStore.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrUserNotFound()
		}
		s.logger.Error("Users service: failed to delete user",
			"user_id", id,
			"error", err.Error())
		spanError(span, err)
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to delete user: %w", err))
	}

	s.logger.Info("Users service: user deleted",
		"user_id", id)
	return nil
}

// ChangePassword replaces the credential of the identity registered under
// email. It is meant for operators and performs no caller check.
func (s *Users) ChangePassword(ctx context.Context, email, newPassword string) error {
	ctx, span := tracer().Start(ctx, "Users.ChangePassword")
	defer span.End()

	user, err := s.userStore.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrUserNotFound()
		}
		s.logger.Error("Users service: failed to get user by email",
			"login", email,
			"error", err.Error())
		spanError(span, err)
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to get user by email: %w", err))
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		if errors.Is(err, password.ErrInvalidInput) {
			return apierrors.NewErrInvalidInput(err)
		}
		s.logger.Error("Users service: failed to hash password",
			"user_id", user.ID,
			"error", err.Error())
		spanError(span, err)
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to hash password: %w", err))
	}

	if _, err := s.userStore.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrUserNotFound()
		}
		s.logger.Error("Users service: failed to store password",
			"user_id", user.ID,
			"error", err.Error())
		spanError(span, err)
		return apierrors.NewErrInternalServerError(fmt.Errorf("failed to store password: %w", err))
	}

	s.logger.Info("Users service: password changed",
		"user_id", user.ID)
	return nil
}

func (s *Users) getByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, apierrors.NewErrUserNotFound()
		}
		s.logger.Error("Users service: failed to get user by id",
			"user_id", id,
			"error", err.Error())
		return model.User{}, apierrors.NewErrInternalServerError(fmt.Errorf("failed to get user by id: %w", err))
	}
	return user, nil
}

func (s *Users) authorizeChange(ctx context.Context, target uuid.UUID, roleChange bool) error {
	if s.contextManager == nil {
		return apierrors.NewErrMissingAuthorizationToken()
	}
	caller, ok := s.contextManager.GetUserFromContext(ctx)
	if !ok {
		return apierrors.NewErrMissingAuthorizationToken()
	}
	if caller.Role == model.RoleAdmin || (caller.ID == target && !roleChange) {
		return nil
	}

	s.logger.Info("Users service: change not permitted",
		"caller_id", caller.ID,
		"user_id", target)
	return apierrors.NewErrForbidden()
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", apierrors.NewErrInvalidInput(errors.New("email must be a valid address"))
	}
	return email, nil
}
